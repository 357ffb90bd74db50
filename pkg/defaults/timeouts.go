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

package defaults

import "time"

// Controller wait timeouts. Both are passed to `argocd app wait --timeout`
// and bound the polling loop of the Kubernetes backend.
const (
	// HealthWaitTimeout bounds the wait for an application to report healthy
	// after its image parameter changed.
	HealthWaitTimeout = 5 * time.Minute

	// SyncWaitTimeout bounds the wait for a triggered sync to converge.
	SyncWaitTimeout = 10 * time.Minute

	// ControllerPollInterval is how often the Kubernetes backend re-reads
	// application status while waiting.
	ControllerPollInterval = 5 * time.Second

	// ControllerCommandTimeout bounds a single argocd CLI command other than
	// `app wait`, which carries its own --timeout.
	ControllerCommandTimeout = 2 * time.Minute
)

// Registry timeouts.
const (
	// RegistryCallTimeout bounds a single registry API call.
	RegistryCallTimeout = 30 * time.Second
)

// Metrics timeouts.
const (
	// PushgatewayTimeout bounds the final metrics push.
	PushgatewayTimeout = 10 * time.Second
)

// Clean sweep pacing.
const (
	// CleanDeleteInterval is the minimum spacing between two deletions
	// issued by a clean sweep.
	CleanDeleteInterval = 500 * time.Millisecond
)
