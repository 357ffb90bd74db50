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

// Environment and naming defaults.
const (
	// DevEnvironment is the only environment preview operations may run against.
	DevEnvironment = "dev"

	// MaxPreviewIDLength caps the sanitized branch identifier so derived
	// application and namespace names stay short.
	MaxPreviewIDLength = 8

	// PreviewEnvironmentLabel is the value of the "environment" label on preview apps.
	PreviewEnvironmentLabel = "preview"
)

// Helm parameter keys.
const (
	ImageTagParameter         = "global.image.tag"
	AirflowImageTagParameter  = "images.airflow.tag"
	PillarParameter           = "global.pillar"
	ServiceNameParameter      = "global.serviceName"
	EnvironmentNameParameter  = "global.environmentName"
	FullnameOverrideParameter = "deployment.fullnameOverride"
)

// BaseValuesFiles are the values files every preview application is created with,
// ahead of the per-repository overlay.
var BaseValuesFiles = []string{"values.yaml", "values-dev.yaml"}

// Controller defaults.
const (
	// ArgoCDBinary is the controller CLI looked up on PATH.
	ArgoCDBinary = "argocd"

	// ArgoCDNamespace is where Application resources live for the Kubernetes backend.
	ArgoCDNamespace = "argocd"

	// ArgoCDUser is the login user when none is configured.
	ArgoCDUser = "admin"
)
