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

// Package config holds the validated configuration of a deployer invocation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/distribution/reference"

	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/deployment"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
	"github.com/NVIDIA/gitops-deployer/pkg/naming"
)

// DeploymentType is the operation requested for an invocation.
type DeploymentType string

const (
	TypePromote DeploymentType = "promote"
	TypePreview DeploymentType = "preview"
	TypeDestroy DeploymentType = "destroy"
	TypeClean   DeploymentType = "clean"
)

// DeploymentTypes lists the supported operations.
var DeploymentTypes = []DeploymentType{TypePromote, TypePreview, TypeDestroy, TypeClean}

// IsPreview reports whether t operates on preview applications.
func (t DeploymentType) IsPreview() bool {
	return t == TypePreview || t == TypeDestroy || t == TypeClean
}

// ParseDeploymentType parses an operation name.
func ParseDeploymentType(s string) (DeploymentType, error) {
	t := DeploymentType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range DeploymentTypes {
		if t == known {
			return t, nil
		}
	}
	return "", errors.NewWithContext(errors.ErrCodeConfiguration,
		fmt.Sprintf("DEPLOYMENT_TYPE %q should be one of %q", s, DeploymentTypes),
		map[string]any{"deployment_type": s})
}

// ControllerBackend selects the argocd.Controller implementation.
type ControllerBackend string

const (
	ControllerCLI  ControllerBackend = "cli"
	ControllerKube ControllerBackend = "kube"
)

// RegistryType selects the registry.Client implementation.
type RegistryType string

const (
	RegistryECR RegistryType = "ecr"
	RegistryOCI RegistryType = "oci"
)

// Config is the configuration of one invocation. It is built once and
// validated before any external call.
type Config struct {
	Environment    string
	DevEnvironment string
	Team           string
	Service        string
	DeploymentType DeploymentType

	TargetBranch string
	TargetCommit string

	// Repository is the image repository promoted within the registry.
	Repository        string
	Region            string
	RegistryType      RegistryType
	RegistryHost      string
	RegistryUsername  string
	RegistryPassword  string
	RegistryPlainHTTP bool

	Controller      ControllerBackend
	ArgoCDHost      string
	ArgoCDUser      string
	ArgoCDPassword  string
	GRPCWeb         bool
	Insecure        bool
	Kubeconfig      string
	ArgoCDNamespace string

	HealthTimeout time.Duration
	SyncTimeout   time.Duration

	ApplicationKind    deployment.ApplicationKind
	ImageTagParameter  string
	OverrideValuesFile string
	BaseValuesFiles    []string
	MaxPreviewIDLength int

	// GitHubRepository is "owner/name"; RepositoryPrefix is stripped from it for labels.
	GitHubRepository string
	RepositoryPrefix string

	ForceDeploy    bool
	PushgatewayURL string
}

// AppName returns the application the invocation targets.
func (c *Config) AppName() string {
	return naming.AppName(c.Team, c.Environment, c.Service)
}

// Validate checks the configuration for the requested deployment type and
// normalizes the application kind.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	if _, err := ParseDeploymentType(string(c.DeploymentType)); err != nil {
		return err
	}

	require("ENVIRONMENT_NAME", c.Environment)
	require("TEAM", c.Team)
	require("SERVICE_NAME", c.Service)

	switch c.Controller {
	case ControllerCLI:
		require("ARGOCD_HOST", c.ArgoCDHost)
		require("ARGOCD_USER", c.ArgoCDUser)
		require("ARGOCD_PASSWORD", c.ArgoCDPassword)
	case ControllerKube:
	default:
		return errors.NewWithContext(errors.ErrCodeConfiguration, "unknown controller backend",
			map[string]any{"controller": string(c.Controller)})
	}

	switch c.DeploymentType {
	case TypePromote:
		require("DOCKER_REPO", c.Repository)
		require("TARGET_COMMIT", c.TargetCommit)
		switch c.RegistryType {
		case RegistryECR:
			require("AWS_REGION", c.Region)
		case RegistryOCI:
			require("REGISTRY_HOST", c.RegistryHost)
		default:
			return errors.NewWithContext(errors.ErrCodeConfiguration, "unknown registry type",
				map[string]any{"registry_type": string(c.RegistryType)})
		}
	case TypePreview:
		require("TARGET_BRANCH", c.TargetBranch)
		require("TARGET_COMMIT", c.TargetCommit)
	case TypeDestroy:
		require("TARGET_BRANCH", c.TargetBranch)
	}

	if len(missing) > 0 {
		return errors.NewWithContext(errors.ErrCodeConfiguration,
			"missing required configuration: "+strings.Join(missing, ", "),
			map[string]any{"deployment_type": string(c.DeploymentType)})
	}

	if c.HealthTimeout <= 0 || c.SyncTimeout <= 0 {
		return errors.NewWithContext(errors.ErrCodeConfiguration, "wait timeouts must be positive",
			map[string]any{"health_timeout": c.HealthTimeout.String(), "sync_timeout": c.SyncTimeout.String()})
	}
	if c.MaxPreviewIDLength < 0 {
		return errors.New(errors.ErrCodeConfiguration, "preview identifier length cap must not be negative")
	}
	kind, err := deployment.ParseApplicationKind(string(c.ApplicationKind))
	if err != nil {
		return err
	}
	c.ApplicationKind = kind

	if c.DeploymentType == TypePromote {
		return validateImage(c.Repository, c.TargetCommit, c.Environment)
	}
	return nil
}

// validateImage checks that repository and both tags form valid image references.
func validateImage(repository string, tags ...string) error {
	named, err := reference.ParseNormalizedNamed(repository)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeConfiguration, "invalid image repository", err,
			map[string]any{"repository": repository})
	}
	if !reference.IsNameOnly(named) {
		return errors.NewWithContext(errors.ErrCodeConfiguration, "image repository must not carry a tag or digest",
			map[string]any{"repository": repository})
	}
	for _, tag := range tags {
		if _, err := reference.WithTag(named, tag); err != nil {
			return errors.WrapWithContext(errors.ErrCodeConfiguration, "invalid image tag", err,
				map[string]any{"repository": repository, "tag": tag})
		}
	}
	return nil
}

// WithDefaults fills unset fields from pkg/defaults.
func (c *Config) WithDefaults() *Config {
	if c.DevEnvironment == "" {
		c.DevEnvironment = defaults.DevEnvironment
	}
	if c.Controller == "" {
		c.Controller = ControllerCLI
	}
	if c.RegistryType == "" {
		c.RegistryType = RegistryECR
	}
	if c.ArgoCDUser == "" {
		c.ArgoCDUser = defaults.ArgoCDUser
	}
	if c.ArgoCDNamespace == "" {
		c.ArgoCDNamespace = defaults.ArgoCDNamespace
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = defaults.HealthWaitTimeout
	}
	if c.SyncTimeout == 0 {
		c.SyncTimeout = defaults.SyncWaitTimeout
	}
	if c.ApplicationKind == "" {
		c.ApplicationKind = deployment.KindGeneric
	}
	if c.BaseValuesFiles == nil {
		c.BaseValuesFiles = defaults.BaseValuesFiles
	}
	if c.MaxPreviewIDLength == 0 {
		c.MaxPreviewIDLength = defaults.MaxPreviewIDLength
	}
	return c
}
