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

// Package metrics holds the run metrics of a deployer invocation and pushes
// them to a Prometheus Pushgateway.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// Registry holds every deployer metric. It is separate from the default
// registry so pushes carry no process metrics.
var Registry = prometheus.NewRegistry()

var (
	// StageDuration observes each controller stage.
	StageDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gitops_deployer_stage_duration_seconds",
			Help:    "Time taken by a deployment or preview stage",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage", "status"}, // status: success or error
	)

	// PromotionsTotal counts promotion outcomes.
	PromotionsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitops_deployer_promotions_total",
			Help: "Image promotions by result",
		},
		[]string{"result"}, // promoted, not-promoted, nothing-to-promote, error
	)

	// PreviewOperationsTotal counts preview lifecycle operations.
	PreviewOperationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitops_deployer_preview_operations_total",
			Help: "Preview environment operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// CleanDeletionsTotal counts per-item results of the preview clean sweep.
	CleanDeletionsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitops_deployer_clean_deletions_total",
			Help: "Preview applications handled by a clean sweep",
		},
		[]string{"status"},
	)

	// RunDuration is the wall time of the last invocation.
	RunDuration = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "gitops_deployer_run_duration_seconds",
			Help: "Duration of the last deployer invocation",
		},
	)
)

// Status maps an error to the "status" label value.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Push sends the registry to a Pushgateway, grouped by the given labels.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(Registry)
	for k, v := range grouping {
		if v != "" {
			p = p.Grouping(k, v)
		}
	}
	if err := p.PushContext(ctx); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to push metrics", err,
			map[string]any{"url": url, "job": job})
	}
	return nil
}
