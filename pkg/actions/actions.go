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

// Package actions integrates with the GitHub Actions runner: secret masking
// and step outputs.
package actions

import (
	"github.com/sethvargo/go-githubactions"
)

// Output names written by the deployer.
const (
	OutputAppName      = "app-name"
	OutputPreviewApp   = "preview-app"
	OutputDashboardURL = "dashboard-url"
	OutputPromotion    = "promotion"
)

// Reporter masks secrets and publishes step outputs. Outside GitHub Actions
// every call is a no-op.
type Reporter struct {
	action  *githubactions.Action
	enabled bool
}

// New creates a Reporter. When enabled is false nothing is written.
func New(enabled bool, opts ...githubactions.Option) *Reporter {
	return &Reporter{action: githubactions.New(opts...), enabled: enabled}
}

// Detect creates a Reporter enabled when running under GitHub Actions.
func Detect() *Reporter {
	a := githubactions.New()
	return &Reporter{action: a, enabled: a.Getenv("GITHUB_ACTIONS") == "true"}
}

// Mask hides value in subsequent runner logs.
func (r *Reporter) Mask(value string) {
	if r == nil || !r.enabled || value == "" {
		return
	}
	r.action.AddMask(value)
}

// Output sets a step output.
func (r *Reporter) Output(name, value string) {
	if r == nil || !r.enabled || value == "" {
		return
	}
	r.action.SetOutput(name, value)
}
