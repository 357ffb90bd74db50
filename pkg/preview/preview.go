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

package preview

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/gitops-deployer/pkg/argocd"
	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/deployment"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
	"github.com/NVIDIA/gitops-deployer/pkg/metrics"
	"github.com/NVIDIA/gitops-deployer/pkg/naming"
)

// Outcome is the result of Ensure.
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
)

// Label keys set on preview applications.
const (
	LabelOriginal    = "original"
	LabelBranch      = "branch"
	LabelEnvironment = "environment"
	LabelRepository  = "repository"
)

// Options configures a Manager.
type Options struct {
	// Environment is the environment of the invocation; it must equal DevEnvironment.
	Environment    string
	DevEnvironment string
	// TemplateApp is the development application previews are derived from.
	TemplateApp string
	// Repository is the value of the repository label.
	Repository string
	// BaseValuesFiles are chart values files applied before the overlay.
	BaseValuesFiles []string
	// OverlayValuesFile is a local file applied as literal values.
	OverlayValuesFile string
	DashboardHost     string
	// DeleteInterval paces deletions during Clean.
	DeleteInterval time.Duration
}

// Manager creates, updates and removes preview applications.
type Manager struct {
	controller argocd.Controller
	deployer   *deployment.Deployer
	opts       Options
	limiter    *rate.Limiter
}

// NewManager creates a Manager. Updates of existing previews run through deployer
// with the overlay values file.
func NewManager(controller argocd.Controller, deployer *deployment.Deployer, opts Options) *Manager {
	if opts.DevEnvironment == "" {
		opts.DevEnvironment = defaults.DevEnvironment
	}
	if opts.BaseValuesFiles == nil {
		opts.BaseValuesFiles = defaults.BaseValuesFiles
	}
	if opts.DeleteInterval <= 0 {
		opts.DeleteInterval = defaults.CleanDeleteInterval
	}
	var overlay []string
	if opts.OverlayValuesFile != "" {
		overlay = []string{opts.OverlayValuesFile}
	}
	return &Manager{
		controller: controller,
		deployer:   deployer.WithValuesFiles(overlay...),
		opts:       opts,
		limiter:    rate.NewLimiter(rate.Every(opts.DeleteInterval), 1),
	}
}

// Gate returns a configuration error unless env is the development environment.
func Gate(env, devEnv string) error {
	if env != devEnv {
		return errors.NewWithContext(errors.ErrCodeConfiguration,
			fmt.Sprintf("preview environments are only available in the %s environment", devEnv),
			map[string]any{"environment": env})
	}
	return nil
}

// AppName returns the preview application name for previewID.
func (m *Manager) AppName(previewID string) (string, error) {
	return naming.PreviewAppName(m.opts.TemplateApp, m.opts.DevEnvironment, previewID)
}

// Ensure creates the preview application for previewID, or redeploys imageTag
// to it when it already exists.
func (m *Manager) Ensure(ctx context.Context, previewID, imageTag string) (Outcome, error) {
	outcome, err := m.ensure(ctx, previewID, imageTag)
	metrics.PreviewOperationsTotal.WithLabelValues("ensure", outcomeLabel(string(outcome), err)).Inc()
	return outcome, err
}

func (m *Manager) ensure(ctx context.Context, previewID, imageTag string) (Outcome, error) {
	if err := Gate(m.opts.Environment, m.opts.DevEnvironment); err != nil {
		return "", err
	}
	app, err := m.AppName(previewID)
	if err != nil {
		return "", err
	}
	url := naming.DashboardURL(m.opts.DashboardHost, app)

	var exists bool
	err = deployment.Observe(deployment.StageExists, func() error {
		var err error
		exists, err = m.controller.Exists(ctx, app)
		return err
	})
	if err != nil {
		return "", deployment.NewStageError(app, deployment.StageExists, url, err)
	}

	if exists {
		slog.Info("preview application exists, updating", "app", app)
		if err := m.deployer.Deploy(ctx, app, imageTag); err != nil {
			return "", err
		}
		slog.Info("preview application updated", "app", app, "url", url)
		return Updated, nil
	}

	slog.Info("preview application will be created", "app", app)
	var tmpl *argocd.AppConfig
	err = deployment.Observe(deployment.StageGetConfig, func() error {
		var err error
		if tmpl, err = m.controller.GetConfig(ctx, m.opts.TemplateApp); err != nil {
			return err
		}
		return tmpl.Validate(2)
	})
	if err != nil {
		return "", deployment.NewStageError(m.opts.TemplateApp, deployment.StageGetConfig,
			naming.DashboardURL(m.opts.DashboardHost, m.opts.TemplateApp), err)
	}

	spec := m.createSpec(app, previewID, imageTag, tmpl)
	if err := deployment.Observe(deployment.StageCreate, func() error { return m.controller.Create(ctx, spec) }); err != nil {
		return "", deployment.NewStageError(app, deployment.StageCreate, url, err)
	}

	slog.Info("preview application created", "app", app, "url", url)
	return Created, nil
}

// createSpec derives the preview application from the template configuration.
func (m *Manager) createSpec(app, previewID, imageTag string, tmpl *argocd.AppConfig) *argocd.CreateSpec {
	return &argocd.CreateSpec{
		Name:              app,
		Project:           tmpl.Project,
		DestServer:        tmpl.DestServer,
		DestName:          tmpl.DestName,
		DestNamespace:     tmpl.DestNamespace,
		RepoURL:           tmpl.RepoURL,
		Path:              tmpl.Path,
		TargetRevision:    tmpl.TargetRevision,
		ValuesFiles:       append([]string(nil), m.opts.BaseValuesFiles...),
		ValuesLiteralFile: m.opts.OverlayValuesFile,
		Parameters: []argocd.HelmParameter{
			{Name: defaults.PillarParameter, Value: tmpl.HelmParameters[0].Value},
			{Name: defaults.ServiceNameParameter, Value: tmpl.HelmParameters[1].Value},
			{Name: defaults.EnvironmentNameParameter, Value: previewID},
			{Name: m.deployer.ImageTagParameter(), Value: imageTag},
			{Name: defaults.FullnameOverrideParameter, Value: app},
		},
		Labels:     m.selector(previewID),
		SyncPolicy: argocd.SyncPolicy{Automated: true, Prune: true, SelfHeal: true, CreateNamespace: false},
		Upsert:     true,
	}
}

func (m *Manager) selector(branch string) map[string]string {
	labels := map[string]string{
		LabelOriginal:    m.opts.TemplateApp,
		LabelEnvironment: defaults.PreviewEnvironmentLabel,
	}
	if branch != "" {
		labels[LabelBranch] = branch
		if m.opts.Repository != "" {
			labels[LabelRepository] = m.opts.Repository
		}
	}
	return labels
}

// Destroy deletes the preview application for previewID.
func (m *Manager) Destroy(ctx context.Context, previewID string) (string, error) {
	app, err := m.destroy(ctx, previewID)
	metrics.PreviewOperationsTotal.WithLabelValues("destroy", outcomeLabel("deleted", err)).Inc()
	return app, err
}

func (m *Manager) destroy(ctx context.Context, previewID string) (string, error) {
	if err := Gate(m.opts.Environment, m.opts.DevEnvironment); err != nil {
		return "", err
	}
	app, err := m.AppName(previewID)
	if err != nil {
		return "", err
	}
	if err := deployment.Observe(deployment.StageDelete, func() error { return m.controller.Delete(ctx, app) }); err != nil {
		return app, deployment.NewStageError(app, deployment.StageDelete, "", err)
	}
	slog.Info("preview application deleted", "app", app)
	return app, nil
}

// ItemFailure is a preview application that could not be deleted.
type ItemFailure struct {
	App string
	Err error
}

// CleanResult reports a clean sweep.
type CleanResult struct {
	Deleted []string
	Failed  []ItemFailure
}

// Err aggregates the per-item failures, or returns nil when there were none.
func (r CleanResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	apps := make([]string, 0, len(r.Failed))
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		apps = append(apps, f.App)
		errs = append(errs, f.Err)
	}
	return errors.WrapWithContext(errors.ErrCodeControllerCommand,
		fmt.Sprintf("failed to delete %d preview application(s)", len(r.Failed)),
		stderrors.Join(errs...),
		map[string]any{"apps": strings.Join(apps, ",")})
}

// Clean deletes every preview application derived from the template. Each
// deletion is attempted independently; only a listing failure aborts.
func (m *Manager) Clean(ctx context.Context) (CleanResult, error) {
	var res CleanResult
	if err := Gate(m.opts.Environment, m.opts.DevEnvironment); err != nil {
		return res, err
	}

	var apps []string
	err := deployment.Observe(deployment.StageList, func() error {
		var err error
		apps, err = m.controller.List(ctx, m.selector(""))
		return err
	})
	if err != nil {
		metrics.PreviewOperationsTotal.WithLabelValues("clean", "error").Inc()
		return res, deployment.NewStageError(m.opts.TemplateApp, deployment.StageList, "", err)
	}
	slog.Info("preview applications found", "template", m.opts.TemplateApp, "count", len(apps))

	for _, app := range apps {
		if err := m.limiter.Wait(ctx); err != nil {
			return res, errors.Wrap(errors.ErrCodeTimeout, "clean sweep interrupted", err)
		}
		if err := m.controller.Delete(ctx, app); err != nil {
			slog.Warn("failed to delete preview application", "app", app, "error", err)
			res.Failed = append(res.Failed, ItemFailure{App: app, Err: err})
			metrics.CleanDeletionsTotal.WithLabelValues("error").Inc()
			continue
		}
		slog.Info("preview application deleted", "app", app)
		res.Deleted = append(res.Deleted, app)
		metrics.CleanDeletionsTotal.WithLabelValues("success").Inc()
	}

	metrics.PreviewOperationsTotal.WithLabelValues("clean", outcomeLabel("swept", res.Err())).Inc()
	return res, nil
}

// RepositoryLabel derives the repository label from an "owner/name" repository,
// stripping prefix when given and the owner otherwise.
func RepositoryLabel(repository, prefix string) string {
	if prefix != "" {
		return strings.TrimPrefix(repository, prefix)
	}
	if i := strings.Index(repository, "/"); i >= 0 {
		return repository[i+1:]
	}
	return repository
}

func outcomeLabel(outcome string, err error) string {
	if err != nil {
		return "error"
	}
	return outcome
}
