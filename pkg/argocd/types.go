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

package argocd

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/labels"
)

// Controller is the GitOps controller capability consumed by the deployment
// and preview engines. Every method is a single blocking call.
type Controller interface {
	// Login authenticates against the controller.
	Login(ctx context.Context, host, user, password string) error
	// GetConfig fetches the declarative configuration of an application.
	GetConfig(ctx context.Context, app string) (*AppConfig, error)
	// Exists reports whether an application exists. It never mutates.
	Exists(ctx context.Context, app string) (bool, error)
	// SetParameter sets one Helm parameter. valuesFiles are local files whose
	// content replaces the literal Helm values; when several are given the last wins.
	SetParameter(ctx context.Context, app, key, value string, valuesFiles []string) error
	// Wait blocks until the requested conditions hold or opts.Timeout elapses.
	Wait(ctx context.Context, app string, opts WaitOptions) error
	// Sync requests reconciliation of live state to desired state.
	Sync(ctx context.Context, app string) error
	// Create creates an application, updating it when it already exists and spec.Upsert is set.
	Create(ctx context.Context, spec *CreateSpec) error
	// Delete deletes an application.
	Delete(ctx context.Context, app string) error
	// List returns the names of applications matching every label in selector.
	List(ctx context.Context, selector map[string]string) ([]string, error)
}

// HelmParameter is a single Helm parameter override.
type HelmParameter struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// AppConfig is the subset of an application's declarative configuration a
// preview application is derived from.
type AppConfig struct {
	Name           string
	Project        string
	DestServer     string
	DestName       string
	DestNamespace  string
	RepoURL        string
	Path           string
	TargetRevision string
	HelmParameters []HelmParameter
}

// WaitOptions selects the conditions Wait blocks on.
type WaitOptions struct {
	// Operation waits for any in-flight operation to finish.
	Operation bool
	// Health waits for the application to report Healthy.
	Health bool
	// Sync waits for the application to report Synced.
	Sync bool
	// Timeout is the inclusive upper bound on the wait.
	Timeout time.Duration
}

// SyncPolicy configures automated reconciliation of a created application.
type SyncPolicy struct {
	Automated       bool
	Prune           bool
	SelfHeal        bool
	CreateNamespace bool
}

// CreateSpec describes an application to create.
type CreateSpec struct {
	Name          string
	Project       string
	DestServer    string
	DestName      string
	DestNamespace string
	RepoURL       string
	Path          string
	// TargetRevision is left to the controller default when empty.
	TargetRevision string
	// ValuesFiles are Helm values files relative to Path.
	ValuesFiles []string
	// ValuesLiteralFile is a local file whose content is applied as literal values.
	ValuesLiteralFile string
	// Parameters are applied in order.
	Parameters []HelmParameter
	Labels     map[string]string
	SyncPolicy SyncPolicy
	// Upsert turns creating an existing application into an update.
	Upsert bool
}

// selectorString renders a label selector as "k1=v1,k2=v2" with sorted keys.
func selectorString(selector map[string]string) string {
	return labels.SelectorFromSet(labels.Set(selector)).String()
}
