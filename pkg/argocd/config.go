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
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// application mirrors the fields of an Application resource read by ParseAppConfig.
type application struct {
	Metadata struct {
		Name string `yaml:"name"`
	} `yaml:"metadata"`
	Spec struct {
		Project     string `yaml:"project"`
		Destination struct {
			Server    string `yaml:"server"`
			Name      string `yaml:"name"`
			Namespace string `yaml:"namespace"`
		} `yaml:"destination"`
		Source  *applicationSource  `yaml:"source"`
		Sources []applicationSource `yaml:"sources"`
	} `yaml:"spec"`
}

type applicationSource struct {
	RepoURL        string `yaml:"repoURL"`
	Path           string `yaml:"path"`
	TargetRevision string `yaml:"targetRevision"`
	Helm           *struct {
		Parameters []HelmParameter `yaml:"parameters"`
	} `yaml:"helm"`
}

// ParseAppConfig parses an Application document (YAML or JSON). Multi-source
// applications contribute their first source.
func ParseAppConfig(data []byte) (*AppConfig, error) {
	var app application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, errors.Wrap(errors.ErrCodeControllerCommand, "failed to parse application configuration", err)
	}

	src := app.Spec.Source
	if src == nil && len(app.Spec.Sources) > 0 {
		src = &app.Spec.Sources[0]
	}
	if src == nil {
		return nil, errors.NewWithContext(errors.ErrCodeControllerCommand,
			"application configuration has no source", map[string]any{"app": app.Metadata.Name})
	}

	cfg := &AppConfig{
		Name:           app.Metadata.Name,
		Project:        app.Spec.Project,
		DestServer:     app.Spec.Destination.Server,
		DestName:       app.Spec.Destination.Name,
		DestNamespace:  app.Spec.Destination.Namespace,
		RepoURL:        src.RepoURL,
		Path:           src.Path,
		TargetRevision: src.TargetRevision,
	}
	if src.Helm != nil {
		cfg.HelmParameters = src.Helm.Parameters
	}
	return cfg, nil
}

// Validate checks that the configuration can seed a derived application
// carrying at least minParams leading Helm parameters.
func (c *AppConfig) Validate(minParams int) error {
	var missing []string
	if c.Project == "" {
		missing = append(missing, "spec.project")
	}
	if c.DestServer == "" && c.DestName == "" {
		missing = append(missing, "spec.destination.server")
	}
	if c.DestNamespace == "" {
		missing = append(missing, "spec.destination.namespace")
	}
	if c.RepoURL == "" {
		missing = append(missing, "spec.source.repoURL")
	}
	if c.Path == "" {
		missing = append(missing, "spec.source.path")
	}
	if len(c.HelmParameters) < minParams {
		missing = append(missing, fmt.Sprintf("spec.source.helm.parameters[0:%d]", minParams))
	}
	if len(missing) > 0 {
		return errors.NewWithContext(errors.ErrCodeControllerCommand,
			"application configuration is incomplete: missing "+strings.Join(missing, ", "),
			map[string]any{"app": c.Name})
	}
	return nil
}
