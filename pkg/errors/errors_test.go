package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConfiguration, "unknown deployment type")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Code != ErrCodeConfiguration {
		t.Errorf("expected code %s, got %s", ErrCodeConfiguration, err.Code)
	}
	if err.Message != "unknown deployment type" {
		t.Errorf("expected message 'unknown deployment type', got %s", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeRegistryUnavailable, "failed to get image", cause)

	if err.Code != ErrCodeRegistryUnavailable {
		t.Errorf("expected code %s, got %s", ErrCodeRegistryUnavailable, err.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped")
	}
}

func TestWrapWithContext(t *testing.T) {
	cause := errors.New("exit status 20")
	ctx := map[string]any{
		"app":   "acme-dev-billing",
		"stage": "wait-health",
	}

	err := WrapWithContext(ErrCodeHealthTimeout, "application never became healthy", cause, ctx)

	if err.Code != ErrCodeHealthTimeout {
		t.Errorf("expected code %s, got %s", ErrCodeHealthTimeout, err.Code)
	}
	if err.Context == nil {
		t.Fatal("expected context to be set")
	}
	if err.Context["stage"] != "wait-health" {
		t.Errorf("expected stage to be wait-health")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StructuredError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrCodeSanitization, "empty preview identifier"),
			expected: "[SANITIZATION_ERROR] empty preview identifier",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeControllerCommand, "sync failed", errors.New("exit status 1")),
			expected: "[CONTROLLER_COMMAND_FAILED] sync failed: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrCodeInternal, "wrapped", cause)

	unwrapped := err.Unwrap()
	if !errors.Is(unwrapped, cause) {
		t.Errorf("expected unwrapped error to be original cause")
	}

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should work with Unwrap")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"structured", New(ErrCodeSyncTimeout, "x"), ErrCodeSyncTimeout},
		{"fmt wrapped", fmt.Errorf("outer: %w", New(ErrCodeConfiguration, "x")), ErrCodeConfiguration},
		{"outermost wins", Wrap(ErrCodeHealthTimeout, "outer", New(ErrCodeTimeout, "inner")), ErrCodeHealthTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeTimeout, "timed out")
	outer := Wrap(ErrCodeControllerCommand, "wait failed", fmt.Errorf("argocd: %w", inner))

	if !IsCode(outer, ErrCodeControllerCommand) {
		t.Error("expected outer code to match")
	}
	if !IsCode(outer, ErrCodeTimeout) {
		t.Error("expected inner code to match through fmt wrapping")
	}
	if IsCode(outer, ErrCodeSanitization) {
		t.Error("unexpected match for absent code")
	}
	if IsCode(nil, ErrCodeTimeout) {
		t.Error("nil error should never match")
	}
}
