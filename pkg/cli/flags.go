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
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gitops-deployer/pkg/config"
	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/deployment"
	"github.com/NVIDIA/gitops-deployer/pkg/logging"
	"github.com/NVIDIA/gitops-deployer/pkg/serializer"
)

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "deployment-type",
			Aliases: []string{"t"},
			Usage: fmt.Sprintf("Operation to run (supported values: %s)",
				config.DeploymentTypes),
			Sources: cli.EnvVars("DEPLOYMENT_TYPE"),
		},
		&cli.StringFlag{
			Name:    "environment",
			Usage:   "Environment the application runs in (e.g., dev, prod)",
			Sources: cli.EnvVars("ENVIRONMENT_NAME"),
		},
		&cli.StringFlag{
			Name:    "dev-environment",
			Value:   defaults.DevEnvironment,
			Usage:   "The only environment preview operations are allowed in",
			Sources: cli.EnvVars("DEV_ENVIRONMENT_NAME"),
		},
		&cli.StringFlag{
			Name:    "team",
			Usage:   "Team owning the application",
			Sources: cli.EnvVars("TEAM"),
		},
		&cli.StringFlag{
			Name:    "service",
			Usage:   "Service name of the application",
			Sources: cli.EnvVars("SERVICE_NAME"),
		},
		&cli.StringFlag{
			Name:    "target-branch",
			Usage:   "Branch a preview environment is derived from (defaults to the local checkout)",
			Sources: cli.EnvVars("INPUT_TARGET-BRANCH", "TARGET_BRANCH", "GITHUB_HEAD_REF", "GITHUB_REF_NAME"),
		},
		&cli.StringFlag{
			Name:    "target-commit",
			Usage:   "Commit whose image is promoted and deployed (defaults to the local checkout)",
			Sources: cli.EnvVars("INPUT_TARGET-COMMIT", "TARGET_COMMIT", "GITHUB_SHA"),
		},
		&cli.StringFlag{
			Name:  "git-dir",
			Value: ".",
			Usage: "Git checkout used when the target branch or commit is not given",
		},

		// Registry
		&cli.StringFlag{
			Name:    "docker-repo",
			Usage:   "Image repository to promote within the registry",
			Sources: cli.EnvVars("DOCKER_REPO"),
		},
		&cli.StringFlag{
			Name:    "registry-type",
			Value:   string(config.RegistryECR),
			Usage:   fmt.Sprintf("Registry backend (supported values: %s, %s)", config.RegistryECR, config.RegistryOCI),
			Sources: cli.EnvVars("REGISTRY_TYPE"),
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "AWS region of the ECR registry",
			Sources: cli.EnvVars("AWS_DEFAULT_REGION", "AWS_REGION"),
		},
		&cli.StringFlag{
			Name:    "registry-host",
			Usage:   "OCI registry host (e.g., ghcr.io)",
			Sources: cli.EnvVars("REGISTRY_HOST"),
		},
		&cli.StringFlag{
			Name:    "registry-username",
			Usage:   "OCI registry username (docker credential store when empty)",
			Sources: cli.EnvVars("REGISTRY_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "registry-password",
			Usage:   "OCI registry password",
			Sources: cli.EnvVars("REGISTRY_PASSWORD"),
		},
		&cli.BoolFlag{
			Name:    "registry-plain-http",
			Usage:   "Use HTTP instead of HTTPS for the OCI registry",
			Sources: cli.EnvVars("REGISTRY_PLAIN_HTTP"),
		},

		// Controller
		&cli.StringFlag{
			Name:    "controller",
			Value:   string(config.ControllerCLI),
			Usage:   fmt.Sprintf("Controller backend (supported values: %s, %s)", config.ControllerCLI, config.ControllerKube),
			Sources: cli.EnvVars("ARGOCD_CONTROLLER"),
		},
		&cli.StringFlag{
			Name:    "argocd-host",
			Usage:   "Argo CD server host",
			Sources: cli.EnvVars("ARGOCD_HOST"),
		},
		&cli.StringFlag{
			Name:    "argocd-user",
			Value:   defaults.ArgoCDUser,
			Usage:   "Argo CD user",
			Sources: cli.EnvVars("ARGOCD_USER"),
		},
		&cli.StringFlag{
			Name:    "argocd-password",
			Usage:   "Argo CD password",
			Sources: cli.EnvVars("ARGOCD_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "argocd-binary",
			Value:   defaults.ArgoCDBinary,
			Usage:   "Argo CD CLI executable",
			Sources: cli.EnvVars("ARGOCD_BINARY"),
		},
		&cli.BoolFlag{
			Name:    "grpc-web",
			Value:   true,
			Usage:   "Route Argo CD gRPC through HTTP/1.1",
			Sources: cli.EnvVars("ARGOCD_GRPC_WEB"),
		},
		&cli.BoolFlag{
			Name:    "insecure",
			Usage:   "Skip Argo CD server certificate verification",
			Sources: cli.EnvVars("ARGOCD_INSECURE"),
		},
		&cli.StringFlag{
			Name:    "kubeconfig",
			Usage:   "Path to kubeconfig for the kube controller backend",
			Sources: cli.EnvVars("KUBECONFIG"),
		},
		&cli.StringFlag{
			Name:    "argocd-namespace",
			Value:   defaults.ArgoCDNamespace,
			Usage:   "Namespace of Application resources for the kube controller backend",
			Sources: cli.EnvVars("ARGOCD_NAMESPACE"),
		},
		&cli.IntFlag{
			Name:    "wait-timeout",
			Value:   int(defaults.HealthWaitTimeout / time.Second),
			Usage:   "Seconds to wait for the application to become healthy",
			Sources: cli.EnvVars("ARGOCD_WAIT_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "sync-wait-timeout",
			Value:   int(defaults.SyncWaitTimeout / time.Second),
			Usage:   "Seconds to wait for the application to sync",
			Sources: cli.EnvVars("ARGOCD_SYNC_WAIT_TIMEOUT"),
		},

		// Application
		&cli.StringFlag{
			Name:    "application-kind",
			Value:   string(deployment.KindGeneric),
			Usage:   fmt.Sprintf("Application kind (supported values: %s, %s)", deployment.KindGeneric, deployment.KindAirflow),
			Sources: cli.EnvVars("APPLICATION_KIND"),
		},
		&cli.StringFlag{
			Name:    "image-tag-parameter",
			Usage:   "Helm parameter carrying the image tag (overrides the application kind)",
			Sources: cli.EnvVars("IMAGE_TAG_PARAMETER"),
		},
		&cli.StringFlag{
			Name:    "values-file",
			Usage:   "Local values file applied to preview applications",
			Sources: cli.EnvVars("DEPLOYMENT_OVERRIDE_VALUES_FILE_NAME"),
		},
		&cli.StringSliceFlag{
			Name:    "base-values-file",
			Usage:   "Chart values files preview applications are created with",
			Value:   defaults.BaseValuesFiles,
			Sources: cli.EnvVars("BASE_VALUES_FILES"),
		},
		&cli.IntFlag{
			Name:    "max-preview-id-length",
			Value:   defaults.MaxPreviewIDLength,
			Usage:   "Maximum length of the preview identifier derived from the branch",
			Sources: cli.EnvVars("MAX_PREVIEW_ID_LENGTH"),
		},
		&cli.StringFlag{
			Name:    "github-repository",
			Usage:   "Source repository (owner/name) recorded on preview applications",
			Sources: cli.EnvVars("GITHUB_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:    "repository-prefix",
			Usage:   "Prefix stripped from the repository label (defaults to the owner)",
			Sources: cli.EnvVars("REPOSITORY_PREFIX"),
		},
		&cli.BoolFlag{
			Name:    "force-deploy",
			Usage:   "Deploy even when the image was already promoted",
			Sources: cli.EnvVars("FORCE_DEPLOY"),
		},

		// Output
		&cli.StringFlag{
			Name:    "pushgateway-url",
			Usage:   "Prometheus Pushgateway receiving run metrics",
			Sources: cli.EnvVars("PUSHGATEWAY_URL"),
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write the run report to this file (\"-\" for stdout)",
		},
		&cli.StringFlag{
			Name:  "report-format",
			Value: string(serializer.FormatJSON),
			Usage: fmt.Sprintf("Run report format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.EnvVars(logging.EnvLogLevel),
		},
	}
}

// configFromCommand assembles the configuration from parsed flags.
func configFromCommand(cmd *cli.Command) (*config.Config, error) {
	typ, err := config.ParseDeploymentType(cmd.String("deployment-type"))
	if err != nil {
		return nil, err
	}
	kind, err := deployment.ParseApplicationKind(cmd.String("application-kind"))
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		Environment:    cmd.String("environment"),
		DevEnvironment: cmd.String("dev-environment"),
		Team:           cmd.String("team"),
		Service:        cmd.String("service"),
		DeploymentType: typ,
		TargetBranch:   cmd.String("target-branch"),
		TargetCommit:   cmd.String("target-commit"),

		Repository:        cmd.String("docker-repo"),
		Region:            cmd.String("region"),
		RegistryType:      config.RegistryType(cmd.String("registry-type")),
		RegistryHost:      cmd.String("registry-host"),
		RegistryUsername:  cmd.String("registry-username"),
		RegistryPassword:  cmd.String("registry-password"),
		RegistryPlainHTTP: cmd.Bool("registry-plain-http"),

		Controller:      config.ControllerBackend(cmd.String("controller")),
		ArgoCDHost:      cmd.String("argocd-host"),
		ArgoCDUser:      cmd.String("argocd-user"),
		ArgoCDPassword:  cmd.String("argocd-password"),
		GRPCWeb:         cmd.Bool("grpc-web"),
		Insecure:        cmd.Bool("insecure"),
		Kubeconfig:      cmd.String("kubeconfig"),
		ArgoCDNamespace: cmd.String("argocd-namespace"),

		HealthTimeout: time.Duration(cmd.Int("wait-timeout")) * time.Second,
		SyncTimeout:   time.Duration(cmd.Int("sync-wait-timeout")) * time.Second,

		ApplicationKind:    kind,
		ImageTagParameter:  cmd.String("image-tag-parameter"),
		OverrideValuesFile: cmd.String("values-file"),
		BaseValuesFiles:    cmd.StringSlice("base-values-file"),
		MaxPreviewIDLength: cmd.Int("max-preview-id-length"),

		GitHubRepository: cmd.String("github-repository"),
		RepositoryPrefix: cmd.String("repository-prefix"),

		ForceDeploy:    cmd.Bool("force-deploy"),
		PushgatewayURL: cmd.String("pushgateway-url"),
	}
	return cfg.WithDefaults(), nil
}
