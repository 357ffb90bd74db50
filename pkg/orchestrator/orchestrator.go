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

// Package orchestrator runs one deployer invocation: it validates the request,
// gates preview operations, logs in to the controller and dispatches to the
// promotion, deployment and preview engines.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/NVIDIA/gitops-deployer/pkg/actions"
	"github.com/NVIDIA/gitops-deployer/pkg/argocd"
	"github.com/NVIDIA/gitops-deployer/pkg/config"
	"github.com/NVIDIA/gitops-deployer/pkg/deployment"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
	"github.com/NVIDIA/gitops-deployer/pkg/header"
	"github.com/NVIDIA/gitops-deployer/pkg/metrics"
	"github.com/NVIDIA/gitops-deployer/pkg/naming"
	"github.com/NVIDIA/gitops-deployer/pkg/preview"
	"github.com/NVIDIA/gitops-deployer/pkg/promotion"
	"github.com/NVIDIA/gitops-deployer/pkg/registry"
)

// Reporter publishes secrets to mask and step outputs to the CI runner.
type Reporter interface {
	Mask(value string)
	Output(name, value string)
}

// Deps are the external collaborators of an invocation.
type Deps struct {
	Controller argocd.Controller
	// Registry is only used by promote.
	Registry registry.Client
	// Reporter is optional.
	Reporter Reporter
}

// Report summarizes a successful or partially successful invocation.
type Report struct {
	header.Header `json:",inline" yaml:",inline"`

	DeploymentType config.DeploymentType `json:"deploymentType" yaml:"deploymentType"`
	App            string                `json:"app" yaml:"app"`
	PreviewApp     string                `json:"previewApp,omitempty" yaml:"previewApp,omitempty"`
	DashboardURL   string                `json:"dashboardURL,omitempty" yaml:"dashboardURL,omitempty"`
	Promotion      promotion.Result      `json:"promotion,omitempty" yaml:"promotion,omitempty"`
	Deployed       bool                  `json:"deployed" yaml:"deployed"`
	Preview        preview.Outcome       `json:"preview,omitempty" yaml:"preview,omitempty"`
	Deleted        []string              `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Failed         []string              `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Orchestrator runs a single invocation.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps
}

// New creates an Orchestrator for a validated configuration.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	if deps.Reporter == nil {
		deps.Reporter = (*actions.Reporter)(nil)
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Run executes the configured deployment type. The returned report is non-nil
// whenever the invocation got past validation.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	cfg := o.cfg
	typ, err := config.ParseDeploymentType(string(cfg.DeploymentType))
	if err != nil {
		return nil, err
	}

	if typ.IsPreview() {
		if err := preview.Gate(cfg.Environment, cfg.DevEnvironment); err != nil {
			return nil, err
		}
	}

	report := &Report{DeploymentType: typ, App: cfg.AppName()}
	o.deps.Reporter.Mask(cfg.ArgoCDPassword)
	o.deps.Reporter.Output(actions.OutputAppName, report.App)

	var previewID string
	if typ == config.TypePreview || typ == config.TypeDestroy {
		if previewID, err = naming.Sanitize(cfg.TargetBranch, cfg.MaxPreviewIDLength); err != nil {
			return report, err
		}
		if report.PreviewApp, err = naming.PreviewAppName(report.App, cfg.DevEnvironment, previewID); err != nil {
			return report, err
		}
		o.deps.Reporter.Output(actions.OutputPreviewApp, report.PreviewApp)
	}

	log := slog.With("deployment_type", string(typ), "app", report.App)
	log.Info("starting deployment")

	switch typ {
	case config.TypePromote:
		err = o.promote(ctx, report)
	case config.TypePreview:
		err = o.ensurePreview(ctx, report, previewID)
	case config.TypeDestroy:
		err = o.destroyPreview(ctx, previewID)
	case config.TypeClean:
		err = o.clean(ctx, report)
	}
	if err != nil {
		return report, err
	}

	log.Info("deployment finished")
	return report, nil
}

func (o *Orchestrator) login(ctx context.Context) error {
	err := deployment.Observe(deployment.StageLogin, func() error {
		return o.deps.Controller.Login(ctx, o.cfg.ArgoCDHost, o.cfg.ArgoCDUser, o.cfg.ArgoCDPassword)
	})
	if err != nil {
		return deployment.NewStageError(o.cfg.ArgoCDHost, deployment.StageLogin, "", err)
	}
	return nil
}

func (o *Orchestrator) deployer() *deployment.Deployer {
	return deployment.NewDeployer(o.deps.Controller, deployment.Options{
		Kind:              o.cfg.ApplicationKind,
		ImageTagParameter: o.cfg.ImageTagParameter,
		HealthTimeout:     o.cfg.HealthTimeout,
		SyncTimeout:       o.cfg.SyncTimeout,
		DashboardHost:     o.cfg.ArgoCDHost,
	})
}

func (o *Orchestrator) previews() *preview.Manager {
	return preview.NewManager(o.deps.Controller, o.deployer(), preview.Options{
		Environment:       o.cfg.Environment,
		DevEnvironment:    o.cfg.DevEnvironment,
		TemplateApp:       o.cfg.AppName(),
		Repository:        preview.RepositoryLabel(o.cfg.GitHubRepository, o.cfg.RepositoryPrefix),
		BaseValuesFiles:   o.cfg.BaseValuesFiles,
		OverlayValuesFile: o.cfg.OverrideValuesFile,
		DashboardHost:     o.cfg.ArgoCDHost,
	})
}

func (o *Orchestrator) promote(ctx context.Context, report *Report) error {
	if o.deps.Registry == nil {
		return errors.New(errors.ErrCodeConfiguration, "promote requires a registry client")
	}

	result, err := promotion.NewPromoter(o.deps.Registry).
		Promote(ctx, o.cfg.Repository, o.cfg.TargetCommit, o.cfg.Environment)
	if err != nil {
		metrics.PromotionsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.PromotionsTotal.WithLabelValues(string(result)).Inc()
	report.Promotion = result
	o.deps.Reporter.Output(actions.OutputPromotion, string(result))

	switch {
	case result == promotion.Promoted:
	case result == promotion.NotPromoted && o.cfg.ForceDeploy:
		slog.Info("image unchanged, deploying anyway", "app", report.App)
	default:
		slog.Info("skipping deployment", "app", report.App, "promotion", string(result))
		return nil
	}

	report.DashboardURL = naming.DashboardURL(o.cfg.ArgoCDHost, report.App)
	o.deps.Reporter.Output(actions.OutputDashboardURL, report.DashboardURL)
	slog.Info("deploying application", "app", report.App, "environment", o.cfg.Environment, "url", report.DashboardURL)

	if err := o.login(ctx); err != nil {
		return err
	}
	if err := o.deployer().Deploy(ctx, report.App, o.cfg.TargetCommit); err != nil {
		return err
	}
	report.Deployed = true
	return nil
}

func (o *Orchestrator) ensurePreview(ctx context.Context, report *Report, previewID string) error {
	if err := o.login(ctx); err != nil {
		return err
	}
	outcome, err := o.previews().Ensure(ctx, previewID, o.cfg.TargetCommit)
	if err != nil {
		return err
	}
	report.Preview = outcome
	report.Deployed = true
	report.DashboardURL = naming.DashboardURL(o.cfg.ArgoCDHost, report.PreviewApp)
	o.deps.Reporter.Output(actions.OutputDashboardURL, report.DashboardURL)
	slog.Info("preview application ready", "app", report.PreviewApp, "outcome", string(outcome), "url", report.DashboardURL)
	return nil
}

func (o *Orchestrator) destroyPreview(ctx context.Context, previewID string) error {
	if err := o.login(ctx); err != nil {
		return err
	}
	_, err := o.previews().Destroy(ctx, previewID)
	return err
}

func (o *Orchestrator) clean(ctx context.Context, report *Report) error {
	if err := o.login(ctx); err != nil {
		return err
	}
	res, err := o.previews().Clean(ctx)
	report.Deleted = res.Deleted
	for _, f := range res.Failed {
		report.Failed = append(report.Failed, f.App)
	}
	if err != nil {
		return err
	}
	return res.Err()
}
