package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

type plainError struct{}

func (plainError) Error() string { return "plain" }

func TestErrorTypeName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout", &TimeoutError{Provider: "codex", Timeout: time.Second}, "TimeoutError"},
		{"wrapped execution", fmt.Errorf("run: %w", &ExecutionError{Message: "boom"}), "ExecutionError"},
		{"circuit sentinel", ErrCircuitOpen, "CircuitOpenError"},
		{"reflect fallback", plainError{}, "plainError"},
		{"pointer fallback", &plainError{}, "plainError"},
		{"provider wraps timeout", &ProviderError{Provider: "x", Err: &TimeoutError{}}, "ProviderError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorTypeName(tt.err); got != tt.want {
				t.Errorf("ErrorTypeName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllProvidersFailedError(t *testing.T) {
	err := &AllProvidersFailedError{Attempted: []string{"codex", "claude"}, LastError: "exit 1"}
	want := "all providers failed (codex, claude): exit 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var target *AllProvidersFailedError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &target) {
		t.Fatal("errors.As should find AllProvidersFailedError")
	}
}

func TestAllProvidersFailedError_UnwrapsLastError(t *testing.T) {
	last := &TimeoutError{Provider: "claude", Timeout: time.Second}
	err := &AllProvidersFailedError{Attempted: []string{"claude"}, LastError: last.Error(), Err: last}

	var timeout *TimeoutError
	if !errors.As(err, &timeout) || timeout != last {
		t.Error("errors.As should reach the last provider error")
	}
	if got := ErrorTypeName(err); got != "AllProvidersFailedError" {
		t.Errorf("aggregate must keep its own type name, got %q", got)
	}
}

func TestAsProviderFailure(t *testing.T) {
	plain := errors.New("segfault in adapter")
	wrapped := AsProviderFailure("vibe", plain)

	var unknown *UnknownError
	if !errors.As(wrapped, &unknown) {
		t.Fatalf("expected UnknownError, got %T", wrapped)
	}
	if unknown.Provider != "vibe" || !errors.Is(wrapped, plain) {
		t.Errorf("unexpected wrap: %+v", unknown)
	}
	if wrapped.Error() != "segfault in adapter" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if got := ErrorTypeName(wrapped); got != "UnknownError" {
		t.Errorf("ErrorTypeName() = %q, want UnknownError", got)
	}

	typed := &ExecutionError{Provider: "vibe", Message: "exit 1"}
	if got := AsProviderFailure("vibe", fmt.Errorf("run: %w", typed)); !errors.Is(got, typed) {
		t.Errorf("typed errors must pass through, got %T", got)
	}
	if _, ok := AsProviderFailure("vibe", typed).(*UnknownError); ok {
		t.Error("typed errors must not be wrapped")
	}
	if AsProviderFailure("vibe", nil) != nil {
		t.Error("nil stays nil")
	}
}

func TestProviderStats_SuccessRate(t *testing.T) {
	var s ProviderStats
	if s.SuccessRate() != 0 {
		t.Errorf("expected 0 for untried provider, got %f", s.SuccessRate())
	}
	s = ProviderStats{Attempts: 4, Successes: 3, Failures: 1}
	if s.SuccessRate() != 0.75 {
		t.Errorf("expected 0.75, got %f", s.SuccessRate())
	}
	if s.HasSucceeded() {
		t.Error("HasSucceeded should be false without LastSuccess")
	}
}
