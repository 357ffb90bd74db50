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

// Package deployment rolls a new image tag out to an existing application:
// set the image parameter, wait for health, sync, then wait for sync.
package deployment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NVIDIA/gitops-deployer/pkg/argocd"
	"github.com/NVIDIA/gitops-deployer/pkg/defaults"
	"github.com/NVIDIA/gitops-deployer/pkg/errors"
	"github.com/NVIDIA/gitops-deployer/pkg/metrics"
	"github.com/NVIDIA/gitops-deployer/pkg/naming"
)

// Stage names a single controller step.
type Stage string

const (
	StageSetParameter Stage = "set-parameter"
	StageWaitHealth   Stage = "wait-health"
	StageSync         Stage = "sync"
	StageWaitSync     Stage = "wait-sync"
	StageGetConfig    Stage = "get-config"
	StageCreate       Stage = "create"
	StageExists       Stage = "exists"
	StageDelete       Stage = "delete"
	StageList         Stage = "list"
	StageLogin        Stage = "login"
)

// StageError reports the stage and application a controller call failed for.
type StageError struct {
	App   string
	Stage Stage
	// URL is the dashboard URL of App, when known.
	URL string
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s failed for application %s", e.Stage, e.App)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the controller error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// ApplicationKind selects how the image tag parameter is named.
type ApplicationKind string

const (
	KindGeneric ApplicationKind = "generic"
	KindAirflow ApplicationKind = "airflow"
)

// ParseApplicationKind parses a kind name. Empty means generic.
func ParseApplicationKind(s string) (ApplicationKind, error) {
	switch k := ApplicationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindGeneric:
		return KindGeneric, nil
	case KindAirflow:
		return k, nil
	default:
		return "", errors.NewWithContext(errors.ErrCodeConfiguration, "unknown application kind",
			map[string]any{"kind": s})
	}
}

// ImageTagParameter returns the Helm parameter carrying the image tag.
func (k ApplicationKind) ImageTagParameter() string {
	if k == KindAirflow {
		return defaults.AirflowImageTagParameter
	}
	return defaults.ImageTagParameter
}

// Options configures a Deployer.
type Options struct {
	Kind ApplicationKind
	// ImageTagParameter overrides the parameter derived from Kind.
	ImageTagParameter string
	// ValuesFiles are local files applied as literal Helm values with the tag.
	ValuesFiles   []string
	HealthTimeout time.Duration
	SyncTimeout   time.Duration
	// DashboardHost is used to attach dashboard URLs to failures.
	DashboardHost string
}

// Deployer runs the deployment pipeline against a controller.
type Deployer struct {
	controller argocd.Controller
	opts       Options
}

// NewDeployer creates a Deployer. Zero timeouts take the package defaults.
func NewDeployer(controller argocd.Controller, opts Options) *Deployer {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = defaults.HealthWaitTimeout
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = defaults.SyncWaitTimeout
	}
	if opts.Kind == "" {
		opts.Kind = KindGeneric
	}
	return &Deployer{controller: controller, opts: opts}
}

// WithValuesFiles returns a copy of d applying files instead of the configured values files.
func (d *Deployer) WithValuesFiles(files ...string) *Deployer {
	cp := *d
	cp.opts.ValuesFiles = files
	return &cp
}

// ImageTagParameter returns the parameter the image tag is written to.
func (d *Deployer) ImageTagParameter() string {
	if d.opts.ImageTagParameter != "" {
		return d.opts.ImageTagParameter
	}
	return d.opts.Kind.ImageTagParameter()
}

// Deploy sets imageTag on app and waits for it to become healthy and synced.
// Stages run in order and the first failure ends the pipeline.
func (d *Deployer) Deploy(ctx context.Context, app, imageTag string) error {
	param := d.ImageTagParameter()

	stages := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{StageSetParameter, func(ctx context.Context) error {
			return d.controller.SetParameter(ctx, app, param, imageTag, d.opts.ValuesFiles)
		}},
		{StageWaitHealth, func(ctx context.Context) error {
			return d.controller.Wait(ctx, app, argocd.WaitOptions{Operation: true, Health: true, Timeout: d.opts.HealthTimeout})
		}},
		{StageSync, func(ctx context.Context) error {
			return d.controller.Sync(ctx, app)
		}},
		{StageWaitSync, func(ctx context.Context) error {
			return d.controller.Wait(ctx, app, argocd.WaitOptions{Operation: true, Health: true, Sync: true, Timeout: d.opts.SyncTimeout})
		}},
	}

	for _, s := range stages {
		slog.Info("running deployment stage", "app", app, "stage", string(s.stage))
		if err := Observe(s.stage, func() error { return s.run(ctx) }); err != nil {
			return d.stageError(app, s.stage, err)
		}
	}

	slog.Info("application deployed", "app", app, "parameter", param, "image_tag", imageTag)
	return nil
}

func (d *Deployer) stageError(app string, stage Stage, err error) error {
	return NewStageError(app, stage, d.dashboardURL(app), err)
}

func (d *Deployer) dashboardURL(app string) string {
	if d.opts.DashboardHost == "" {
		return ""
	}
	return naming.DashboardURL(d.opts.DashboardHost, app)
}

// NewStageError labels err with stage and app. Wait timeouts are reclassified
// as health or sync timeouts.
func NewStageError(app string, stage Stage, url string, err error) *StageError {
	if errors.IsCode(err, errors.ErrCodeTimeout) {
		switch stage {
		case StageWaitHealth:
			err = errors.WrapWithContext(errors.ErrCodeHealthTimeout, "application did not become healthy in time", err,
				map[string]any{"app": app})
		case StageWaitSync:
			err = errors.WrapWithContext(errors.ErrCodeSyncTimeout, "application did not sync in time", err,
				map[string]any{"app": app})
		}
	}
	return &StageError{App: app, Stage: stage, URL: url, Err: err}
}

// Observe runs fn and records its duration under stage.
func Observe(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(string(stage), metrics.Status(err)).Observe(time.Since(start).Seconds())
	return err
}
