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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gitops-deployer/pkg/actions"
	"github.com/NVIDIA/gitops-deployer/pkg/argocd"
	"github.com/NVIDIA/gitops-deployer/pkg/config"
	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
	"github.com/NVIDIA/gitops-deployer/pkg/gitref"
	"github.com/NVIDIA/gitops-deployer/pkg/header"
	"github.com/NVIDIA/gitops-deployer/pkg/k8s/client"
	"github.com/NVIDIA/gitops-deployer/pkg/logging"
	"github.com/NVIDIA/gitops-deployer/pkg/metrics"
	"github.com/NVIDIA/gitops-deployer/pkg/orchestrator"
	"github.com/NVIDIA/gitops-deployer/pkg/registry"
	"github.com/NVIDIA/gitops-deployer/pkg/serializer"
)

const (
	name           = "gitops-deployer"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// NewCommand returns the root command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Promote images and manage Argo CD preview environments",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Description: `Runs one deployment operation per invocation:

  promote - tag the image built for the target commit with the environment name
            and, when it changed, roll it out to {team}-{environment}-{service}
  preview - create or update the preview application of the target branch
  destroy - delete the preview application of the target branch
  clean   - delete every preview application of the development application

Every flag can also be set through the environment variable named in its help.`,
		Flags:  flags(),
		Action: run,
	}
}

// builder creates the external collaborators. Tests replace it.
type builder func(ctx context.Context, cmd *cli.Command, cfg *config.Config) (orchestrator.Deps, error)

var buildDeps builder = newDeps

func run(ctx context.Context, cmd *cli.Command) error {
	logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
	runID := uuid.NewString()
	slog.SetDefault(slog.Default().With("run_id", runID))
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date)

	cfg, err := configFromCommand(cmd)
	if err != nil {
		return err
	}
	resolveGitRef(cmd.String("git-dir"), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := buildDeps(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	report, runErr := orchestrator.New(cfg, deps).Run(ctx)
	metrics.RunDuration.Set(time.Since(start).Seconds())

	if report != nil {
		report.Init(header.KindDeploymentReport, version)
		report.SetMetadata(header.MetadataRunID, runID)
		if err := writeReport(cmd.String("report"), serializer.Format(cmd.String("report-format")), report); err != nil {
			slog.Warn("failed to write run report", "error", err)
		}
	}
	pushMetrics(ctx, cfg, runID)
	return runErr
}

// resolveGitRef fills a missing branch or commit from the local checkout.
// Failures are left to validation.
func resolveGitRef(dir string, cfg *config.Config) {
	if cfg.TargetBranch != "" && cfg.TargetCommit != "" {
		return
	}
	if cfg.DeploymentType == config.TypeClean {
		return
	}
	ref, err := gitref.Resolve(dir)
	if err != nil {
		slog.Debug("git checkout not available", "dir", dir, "error", err)
		return
	}
	if cfg.TargetBranch == "" {
		cfg.TargetBranch = ref.Branch
	}
	if cfg.TargetCommit == "" {
		cfg.TargetCommit = ref.Commit
	}
	slog.Info("resolved target from git checkout", "branch", cfg.TargetBranch, "commit", cfg.TargetCommit)
}

func newDeps(ctx context.Context, cmd *cli.Command, cfg *config.Config) (orchestrator.Deps, error) {
	deps := orchestrator.Deps{Reporter: actions.Detect()}

	switch cfg.Controller {
	case config.ControllerKube:
		dyn, err := client.BuildDynamicClient(cfg.Kubeconfig)
		if err != nil {
			return deps, err
		}
		deps.Controller = argocd.NewKube(dyn, argocd.KubeOptions{Namespace: cfg.ArgoCDNamespace, Initiator: name})
	default:
		deps.Controller = argocd.NewCLI(nil, argocd.CLIOptions{
			Binary:   cmd.String("argocd-binary"),
			GRPCWeb:  cfg.GRPCWeb,
			Insecure: cfg.Insecure,
		})
	}

	if cfg.DeploymentType != config.TypePromote {
		return deps, nil
	}
	switch cfg.RegistryType {
	case config.RegistryOCI:
		c, err := registry.NewOCIClient(registry.OCIOptions{
			Registry:  cfg.RegistryHost,
			Username:  cfg.RegistryUsername,
			Password:  cfg.RegistryPassword,
			PlainHTTP: cfg.RegistryPlainHTTP,
		})
		if err != nil {
			return deps, err
		}
		deps.Registry = c
	default:
		c, err := registry.NewECRClient(ctx, cfg.Region)
		if err != nil {
			return deps, err
		}
		deps.Registry = c
	}
	return deps, nil
}

func writeReport(path string, format serializer.Format, report *orchestrator.Report) error {
	if path == "" {
		return nil
	}
	if path == "-" {
		path = ""
	}
	w, err := serializer.NewFileWriterOrStdout(format, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			slog.Warn("failed to close report", "error", err)
		}
	}()
	return w.Serialize(report)
}

func pushMetrics(ctx context.Context, cfg *config.Config, runID string) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaults.PushgatewayTimeout)
	defer cancel()

	err := metrics.Push(ctx, cfg.PushgatewayURL, name, map[string]string{
		"app":             cfg.AppName(),
		"deployment_type": string(cfg.DeploymentType),
		"run_id":          runID,
	})
	if err != nil {
		slog.Warn("failed to push metrics", "error", err)
	}
}

// Execute runs the root command with process arguments and exits non-zero on
// failure. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewCommand().Run(ctx, os.Args); err != nil {
		stop()
		slog.Error("deployment failed", "code", string(errors.CodeOf(err)), "error", err)
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(2)
		}
		os.Exit(1)
	}
}
