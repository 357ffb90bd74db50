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

package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gitops-deployer/pkg/argocd/argocdtest"
	"github.com/NVIDIA/gitops-deployer/pkg/config"
	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/deployment"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
	"github.com/NVIDIA/gitops-deployer/pkg/header"
	"github.com/NVIDIA/gitops-deployer/pkg/orchestrator"
)

// parse runs a command with the deployer flags and returns the configuration.
func parse(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		cfg *config.Config
		err error
	)
	cmd := &cli.Command{
		Name:  "test",
		Flags: flags(),
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, err = configFromCommand(c)
			return nil
		},
	}
	if runErr := cmd.Run(context.Background(), append([]string{"test"}, args...)); runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}
	return cfg, err
}

func TestConfigFromCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(*testing.T, *config.Config)
	}{
		{
			name: "defaults",
			args: []string{"--deployment-type", "clean"},
			validate: func(t *testing.T, c *config.Config) {
				if c.DeploymentType != config.TypeClean {
					t.Errorf("DeploymentType = %v, want clean", c.DeploymentType)
				}
				if c.DevEnvironment != "dev" {
					t.Errorf("DevEnvironment = %q, want dev", c.DevEnvironment)
				}
				if c.Controller != config.ControllerCLI {
					t.Errorf("Controller = %v, want cli", c.Controller)
				}
				if c.RegistryType != config.RegistryECR {
					t.Errorf("RegistryType = %v, want ecr", c.RegistryType)
				}
				if !c.GRPCWeb {
					t.Error("GRPCWeb = false, want true")
				}
				if c.HealthTimeout != 300*time.Second {
					t.Errorf("HealthTimeout = %v, want 5m", c.HealthTimeout)
				}
				if c.SyncTimeout != 600*time.Second {
					t.Errorf("SyncTimeout = %v, want 10m", c.SyncTimeout)
				}
			},
		},
		{
			name: "timeouts in seconds",
			args: []string{"--deployment-type", "promote", "--wait-timeout", "30", "--sync-wait-timeout", "45"},
			validate: func(t *testing.T, c *config.Config) {
				if c.HealthTimeout != 30*time.Second || c.SyncTimeout != 45*time.Second {
					t.Errorf("timeouts = %v/%v, want 30s/45s", c.HealthTimeout, c.SyncTimeout)
				}
			},
		},
		{
			name: "kube backend",
			args: []string{"--deployment-type", "preview", "--controller", "kube", "--argocd-namespace", "gitops"},
			validate: func(t *testing.T, c *config.Config) {
				if c.Controller != config.ControllerKube {
					t.Errorf("Controller = %v, want kube", c.Controller)
				}
				if c.ArgoCDNamespace != "gitops" {
					t.Errorf("ArgoCDNamespace = %q, want gitops", c.ArgoCDNamespace)
				}
			},
		},
		{
			name: "repeated values files",
			args: []string{"--deployment-type", "preview", "--base-values-file", "a.yaml", "--base-values-file", "b.yaml"},
			validate: func(t *testing.T, c *config.Config) {
				if len(c.BaseValuesFiles) != 2 || c.BaseValuesFiles[1] != "b.yaml" {
					t.Errorf("BaseValuesFiles = %v, want [a.yaml b.yaml]", c.BaseValuesFiles)
				}
			},
		},
		{
			name: "mixed-case application kind",
			args: []string{"--deployment-type", "promote", "--application-kind", "Airflow"},
			validate: func(t *testing.T, c *config.Config) {
				if c.ApplicationKind != deployment.KindAirflow {
					t.Errorf("ApplicationKind = %q, want %q", c.ApplicationKind, deployment.KindAirflow)
				}
				if got := c.ApplicationKind.ImageTagParameter(); got != defaults.AirflowImageTagParameter {
					t.Errorf("ImageTagParameter() = %q, want %q", got, defaults.AirflowImageTagParameter)
				}
			},
		},
		{
			name: "force deploy",
			args: []string{"--deployment-type", "promote", "--force-deploy"},
			validate: func(t *testing.T, c *config.Config) {
				if !c.ForceDeploy {
					t.Error("ForceDeploy = false, want true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parse(t, tt.args...)
			if err != nil {
				t.Fatalf("configFromCommand() error = %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestConfigFromCommand_Environment(t *testing.T) {
	t.Setenv("DEPLOYMENT_TYPE", "promote")
	t.Setenv("ENVIRONMENT_NAME", "prod")
	t.Setenv("TEAM", "acme")
	t.Setenv("SERVICE_NAME", "billing")
	t.Setenv("DOCKER_REPO", "acme/billing")
	t.Setenv("TARGET_COMMIT", "abc123")
	t.Setenv("ARGOCD_WAIT_TIMEOUT", "12")

	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("configFromCommand() error = %v", err)
	}
	if cfg.DeploymentType != config.TypePromote {
		t.Errorf("DeploymentType = %v, want promote", cfg.DeploymentType)
	}
	if got := cfg.AppName(); got != "acme-prod-billing" {
		t.Errorf("AppName() = %q, want acme-prod-billing", got)
	}
	if cfg.Repository != "acme/billing" {
		t.Errorf("Repository = %q, want acme/billing", cfg.Repository)
	}
	if cfg.HealthTimeout != 12*time.Second {
		t.Errorf("HealthTimeout = %v, want 12s", cfg.HealthTimeout)
	}
}

func TestConfigFromCommand_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("DEPLOYMENT_TYPE", "promote")
	t.Setenv("ENVIRONMENT_NAME", "prod")

	cfg, err := parse(t, "--environment", "stage")
	if err != nil {
		t.Fatalf("configFromCommand() error = %v", err)
	}
	if cfg.Environment != "stage" {
		t.Errorf("Environment = %q, want stage", cfg.Environment)
	}
}

func TestConfigFromCommand_UnknownApplicationKind(t *testing.T) {
	t.Setenv("APPLICATION_KIND", "spark")
	_, err := parse(t, "--deployment-type", "promote")
	if !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("code = %v, want %v", errors.CodeOf(err), errors.ErrCodeConfiguration)
	}
}

func TestConfigFromCommand_UnknownType(t *testing.T) {
	_, err := parse(t, "--deployment-type", "rollback")
	if err == nil {
		t.Fatal("expected error for unknown deployment type")
	}
	if !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("code = %v, want %v", errors.CodeOf(err), errors.ErrCodeConfiguration)
	}
}

// stubDeps replaces the collaborator builder for the duration of a test.
func stubDeps(t *testing.T, fn builder) {
	t.Helper()
	orig := buildDeps
	buildDeps = fn
	t.Cleanup(func() { buildDeps = orig })
}

func TestRun_InvalidConfigurationBuildsNothing(t *testing.T) {
	stubDeps(t, func(context.Context, *cli.Command, *config.Config) (orchestrator.Deps, error) {
		t.Fatal("collaborators built for invalid configuration")
		return orchestrator.Deps{}, nil
	})

	err := NewCommand().Run(context.Background(), []string{name,
		"--deployment-type", "promote",
		"--environment", "prod",
		"--git-dir", t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("code = %v, want %v", errors.CodeOf(err), errors.ErrCodeConfiguration)
	}
}

func TestRun_DestroyWritesReport(t *testing.T) {
	ctrl := argocdtest.New()
	ctrl.AddApp("acme-my-coolb-billing", nil)
	stubDeps(t, func(context.Context, *cli.Command, *config.Config) (orchestrator.Deps, error) {
		return orchestrator.Deps{Controller: ctrl}, nil
	})

	report := filepath.Join(t.TempDir(), "report.json")
	err := NewCommand().Run(context.Background(), []string{name,
		"--deployment-type", "destroy",
		"--environment", "dev",
		"--team", "acme",
		"--service", "billing",
		"--target-branch", "feature/My-Cool_Branch!!",
		"--target-commit", "abc123",
		"--argocd-host", "argocd.example.com",
		"--argocd-password", "s3cret",
		"--github-repository", "acme/billing",
		"--report", report,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := ctrl.Apps["acme-my-coolb-billing"]; ok {
		t.Error("preview application still present after destroy")
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got orchestrator.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.PreviewApp != "acme-my-coolb-billing" {
		t.Errorf("PreviewApp = %q, want acme-my-coolb-billing", got.PreviewApp)
	}
	if got.Kind != header.KindDeploymentReport {
		t.Errorf("Kind = %v, want %v", got.Kind, header.KindDeploymentReport)
	}
	if got.Metadata[header.MetadataRunID] == "" {
		t.Error("report metadata missing run ID")
	}
	if got.DeploymentType != config.TypeDestroy {
		t.Errorf("DeploymentType = %v, want destroy", got.DeploymentType)
	}
}

func TestResolveGitRef_KeepsExplicitValues(t *testing.T) {
	cfg := &config.Config{DeploymentType: config.TypePreview, TargetBranch: "main", TargetCommit: "abc"}
	resolveGitRef(t.TempDir(), cfg)
	if cfg.TargetBranch != "main" || cfg.TargetCommit != "abc" {
		t.Errorf("resolveGitRef() changed explicit values: %q %q", cfg.TargetBranch, cfg.TargetCommit)
	}
}
