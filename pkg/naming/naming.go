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

// Package naming derives the resource names the deployer operates on: the
// application name, the preview identifier sanitized from a branch, the
// preview application name and its dashboard URL.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

// branchPrefixes are stripped from the start of a branch name. Only the first
// matching prefix is removed.
var branchPrefixes = []string{"feature/", "hotfix/", "bugfix/"}

var disallowed = regexp.MustCompile(`[^a-zA-Z0-9-]`)

var lower = cases.Lower(language.Und)

// Sanitize turns a branch or ref name into a preview identifier.
//
// The steps run in a fixed order: strip one leading branch-type prefix, drop
// every character outside [a-zA-Z0-9-], trim hyphens at both ends, truncate to
// maxLen (no cap when maxLen <= 0), trim hyphens exposed by the truncation and
// lower-case. An empty result is a sanitization error.
func Sanitize(raw string, maxLen int) (string, error) {
	name := raw
	for _, p := range branchPrefixes {
		if strings.HasPrefix(name, p) {
			name = strings.TrimPrefix(name, p)
			break
		}
	}

	name = disallowed.ReplaceAllString(name, "")
	name = strings.Trim(name, "-")

	if maxLen > 0 && len(name) > maxLen {
		name = strings.TrimRight(name[:maxLen], "-")
	}

	name = lower.String(name)
	if name == "" {
		return "", errors.NewWithContext(errors.ErrCodeSanitization,
			"branch name yields an empty preview identifier", map[string]any{"branch": raw})
	}
	return name, nil
}

// AppName returns the application name for a team, environment and service.
func AppName(team, env, service string) string {
	return strings.Join([]string{team, env, service}, "-")
}

// PreviewAppName substitutes the development environment segment of appName
// with the preview identifier. The substitution is only defined when appName
// contains "-{devEnv}-".
func PreviewAppName(appName, devEnv, previewID string) (string, error) {
	segment := "-" + devEnv + "-"
	if !strings.Contains(appName, segment) {
		return "", errors.NewWithContext(errors.ErrCodeConfiguration,
			fmt.Sprintf("application name does not contain the %q segment", segment),
			map[string]any{"app": appName})
	}
	if previewID == "" {
		return "", errors.New(errors.ErrCodeSanitization, "preview identifier is empty")
	}
	return strings.Replace(appName, segment, "-"+previewID+"-", 1), nil
}

// DashboardURL returns the controller UI link for an application.
func DashboardURL(host, appName string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	return fmt.Sprintf("https://%s/applications/%s", host, appName)
}
