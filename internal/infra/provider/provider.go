// Package provider implements the task providers and their registry.
//
// This package contains:
//   - Provider interface: core abstraction for a CLI AI tool
//   - Func: closure-backed provider for embedding and tests
//   - CommandProvider: subprocess-backed provider
//   - Registry: configured order, aliases and per-provider statistics
package provider

import (
	"context"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// Provider defines the contract every task provider implements.
type Provider interface {
	// GetName returns the provider identifier (e.g., "codex", "claude")
	GetName() string

	// Execute runs the task and returns its result. Failures should be
	// *domain.TimeoutError or *domain.ExecutionError where applicable.
	Execute(ctx context.Context, task domain.Task, ec domain.ExecContext) (*domain.TaskResult, error)

	// HealthCheck reports whether the provider is usable. It must not
	// touch task state.
	HealthCheck(ctx context.Context) bool
}

// Func adapts plain functions to the Provider interface.
type Func struct {
	Name   string
	Run    func(ctx context.Context, task domain.Task, ec domain.ExecContext) (*domain.TaskResult, error)
	Health func(ctx context.Context) bool
}

// GetName returns the provider's name.
func (f *Func) GetName() string {
	return f.Name
}

// Execute calls Run.
func (f *Func) Execute(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.TaskResult, error) {
	if f.Run == nil {
		return nil, &domain.ExecutionError{Provider: f.Name, Message: "provider has no run function"}
	}
	return f.Run(ctx, task, ec)
}

// HealthCheck calls Health, treating a missing probe as healthy.
func (f *Func) HealthCheck(ctx context.Context) bool {
	if f.Health == nil {
		return true
	}
	return f.Health(ctx)
}
