// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package defaults provides centralized configuration constants for the deployer.
//
// # Timeout Categories
//
//   - Controller timeouts: health and sync waits, polling interval, single commands
//   - Registry timeouts: individual registry API calls
//   - Metrics timeouts: the final Pushgateway push
//
// # Naming Defaults
//
// The development environment name, the preview identifier cap and the Helm
// parameter keys shared by the deployment and preview engines.
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.RegistryCallTimeout)
//	defer cancel()
package defaults
