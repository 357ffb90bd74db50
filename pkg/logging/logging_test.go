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

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("text") != FormatText {
		t.Error("expected text format")
	}
	if ParseFormat("TEXT ") != FormatText {
		t.Error("expected case-insensitive text format")
	}
	if ParseFormat("") != FormatJSON {
		t.Error("expected json default")
	}
	if ParseFormat("xml") != FormatJSON {
		t.Error("expected json fallback")
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, FormatJSON, "gitops-deployer", "v1.2.3", slog.LevelInfo)

	l.Info("promoted", "app", "acme-dev-billing")
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["module"] != "gitops-deployer" {
		t.Errorf("module = %v", rec["module"])
	}
	if rec["version"] != "v1.2.3" {
		t.Errorf("version = %v", rec["version"])
	}
	if rec["app"] != "acme-dev-billing" {
		t.Errorf("app = %v", rec["app"])
	}
	if _, ok := rec["source"]; ok {
		t.Error("source should only be added at debug level")
	}
}

func TestNewLogger_TextDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, FormatText, "m", "v", slog.LevelDebug)
	l.Debug("visible")

	out := buf.String()
	if !strings.Contains(out, "msg=visible") {
		t.Errorf("expected text record, got %q", out)
	}
	if !strings.Contains(out, "source=") {
		t.Errorf("expected source attribute at debug level, got %q", out)
	}
}
