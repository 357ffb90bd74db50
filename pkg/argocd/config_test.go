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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

const applicationYAML = `apiVersion: argoproj.io/v1alpha1
kind: Application
metadata:
  name: acme-dev-billing
  namespace: argocd
spec:
  project: acme
  destination:
    server: https://kubernetes.default.svc
    namespace: acme-dev
  source:
    repoURL: git@github.com:acme/deploy.git
    path: charts/billing
    targetRevision: main
    helm:
      parameters:
        - name: global.pillar
          value: payments
        - name: global.serviceName
          value: billing
        - name: global.environmentName
          value: dev
        - name: global.image.tag
          value: "1234"
status:
  health:
    status: Healthy
`

func TestParseAppConfig(t *testing.T) {
	cfg, err := ParseAppConfig([]byte(applicationYAML))
	require.NoError(t, err)

	assert.Equal(t, "acme-dev-billing", cfg.Name)
	assert.Equal(t, "acme", cfg.Project)
	assert.Equal(t, "https://kubernetes.default.svc", cfg.DestServer)
	assert.Equal(t, "acme-dev", cfg.DestNamespace)
	assert.Equal(t, "git@github.com:acme/deploy.git", cfg.RepoURL)
	assert.Equal(t, "charts/billing", cfg.Path)
	assert.Equal(t, "main", cfg.TargetRevision)
	require.Len(t, cfg.HelmParameters, 4)
	assert.Equal(t, HelmParameter{Name: "global.image.tag", Value: "1234"}, cfg.HelmParameters[3])
	assert.NoError(t, cfg.Validate(3))
}

func TestParseAppConfig_JSONMultiSource(t *testing.T) {
	doc := `{"metadata":{"name":"a"},"spec":{"project":"p","destination":{"name":"in-cluster","namespace":"ns"},
"sources":[{"repoURL":"r1","path":"p1","helm":{"parameters":[{"name":"k","value":"v"}]}},{"repoURL":"r2","path":"p2"}]}}`

	cfg, err := ParseAppConfig([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "in-cluster", cfg.DestName)
	assert.Equal(t, "r1", cfg.RepoURL)
	assert.Equal(t, []HelmParameter{{Name: "k", Value: "v"}}, cfg.HelmParameters)
}

func TestParseAppConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "spec: [unterminated"},
		{"no source", "metadata:\n  name: a\nspec:\n  project: p\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAppConfig([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeControllerCommand))
		})
	}
}

func TestAppConfig_Validate(t *testing.T) {
	cfg := &AppConfig{Name: "a", RepoURL: "r", HelmParameters: []HelmParameter{{Name: "x"}}}
	err := cfg.Validate(3)
	require.Error(t, err)
	for _, field := range []string{"spec.project", "spec.destination.server", "spec.destination.namespace", "spec.source.path", "helm.parameters"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.NotContains(t, err.Error(), "repoURL")
}
