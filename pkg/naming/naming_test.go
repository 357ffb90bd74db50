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

package naming

import (
	"regexp"
	"strings"
	"testing"

	"github.com/NVIDIA/gitops-deployer/pkg/errors"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		maxLen  int
		want    string
		wantErr bool
	}{
		{"feature prefix with punctuation", "feature/My-Cool_Branch!!", 8, "my-coolb", false},
		{"hotfix prefix", "hotfix/urgent", 8, "urgent", false},
		{"bugfix prefix", "bugfix/JIRA-123", 8, "jira-123", false},
		{"only first prefix stripped", "feature/hotfix/x", 0, "hotfixx", false},
		{"prefix not leading", "team/feature/abc", 0, "teamfeatureabc", false},
		{"no cap", "feature/a-very-long-branch-name", 0, "a-very-long-branch-name", false},
		{"leading and trailing hyphens", "--abc--", 8, "abc", false},
		{"truncation exposes hyphen", "abcdefg-hij", 8, "abcdefg", false},
		{"slashes removed", "release/2024.10", 8, "release2", false},
		{"main", "main", 8, "main", false},
		{"unicode dropped", "feature/über-ñ", 8, "ber", false},
		{"empty", "", 8, "", true},
		{"only prefix", "feature/", 8, "", true},
		{"only punctuation", "feature/!!__--", 8, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.raw, tt.maxLen)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sanitize(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.IsCode(err, errors.ErrCodeSanitization) {
					t.Errorf("expected sanitization error code, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitize_Properties(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	prefixes := []string{"feature/", "hotfix/", "bugfix/"}
	bodies := []string{
		"A", "My-Cool_Branch!!", "x--y", "-lead", "trail-", "ABC-def-GHI-jkl",
		"123", "a b c", "with.dots.and/slashes", "--Z--", "CamelCaseBranchName",
	}

	for _, p := range prefixes {
		for _, b := range bodies {
			raw := p + b
			for _, maxLen := range []int{0, 1, 3, 8, 63} {
				got, err := Sanitize(raw, maxLen)
				if err != nil {
					t.Errorf("Sanitize(%q, %d) unexpected error: %v", raw, maxLen, err)
					continue
				}
				if strings.Contains(got, strings.TrimSuffix(p, "/")+"/") {
					t.Errorf("Sanitize(%q) = %q still contains prefix", raw, got)
				}
				if !valid.MatchString(got) {
					t.Errorf("Sanitize(%q, %d) = %q is not a valid identifier", raw, maxLen, got)
				}
				if maxLen > 0 && len(got) > maxLen {
					t.Errorf("Sanitize(%q, %d) = %q exceeds cap", raw, maxLen, got)
				}
			}
		}
	}
}

func TestAppName(t *testing.T) {
	if got := AppName("acme", "dev", "billing"); got != "acme-dev-billing" {
		t.Errorf("AppName() = %q, want acme-dev-billing", got)
	}
}

func TestPreviewAppName(t *testing.T) {
	tests := []struct {
		name      string
		app       string
		devEnv    string
		previewID string
		want      string
		wantCode  errors.ErrorCode
	}{
		{"substitutes dev segment", "acme-dev-billing", "dev", "myfeat", "acme-myfeat-billing", ""},
		{"only first segment", "acme-dev-dev-api", "dev", "x1", "acme-x1-dev-api", ""},
		{"custom dev env", "acme-develop-billing", "develop", "abc", "acme-abc-billing", ""},
		{"missing segment", "acme-prod-billing", "dev", "myfeat", "", errors.ErrCodeConfiguration},
		{"dev without delimiters", "acmedevbilling", "dev", "myfeat", "", errors.ErrCodeConfiguration},
		{"empty preview id", "acme-dev-billing", "dev", "", "", errors.ErrCodeSanitization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PreviewAppName(tt.app, tt.devEnv, tt.previewID)
			if tt.wantCode != "" {
				if !errors.IsCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PreviewAppName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDashboardURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"argocd.example.com", "https://argocd.example.com/applications/acme-x-billing"},
		{"https://argocd.example.com/", "https://argocd.example.com/applications/acme-x-billing"},
		{"http://argocd.local:8080", "https://argocd.local:8080/applications/acme-x-billing"},
	}
	for _, tt := range tests {
		if got := DashboardURL(tt.host, "acme-x-billing"); got != tt.want {
			t.Errorf("DashboardURL(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}
