// Package routing handles provider ordering, selection and failover.
//
// This package contains:
//   - FallbackExecutor: tries providers in order until one succeeds
//   - CircuitBreaker: excludes providers with a recent failure streak
//   - ScoredSelector: picks the best provider from usage statistics
//   - Orchestrator: the entry points used by the task engine
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/metrics"
	"github.com/vietddude/taskrelay/internal/infra/provider"
)

// FallbackExecutor runs a task against a provider chain, one provider at a
// time. The first success wins.
type FallbackExecutor struct {
	registry *provider.Registry
	log      *slog.Logger
	now      func() time.Time
}

// NewFallbackExecutor creates an executor over the registry's providers.
func NewFallbackExecutor(registry *provider.Registry) *FallbackExecutor {
	return &FallbackExecutor{
		registry: registry,
		log:      slog.Default().With("component", "fallback"),
		now:      time.Now,
	}
}

// Execute runs the task using the registry's configured order.
func (e *FallbackExecutor) Execute(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.ExecutionResult, error) {
	return e.ExecuteWithOrder(ctx, task, ec, e.registry.Order())
}

// ExecuteWithOrder runs the task using an explicit provider order. Names that
// resolve to no registered provider are skipped without recording stats.
// The returned result is never nil; the error is non-nil iff the result
// reports failure.
func (e *FallbackExecutor) ExecuteWithOrder(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
	order []string,
) (*domain.ExecutionResult, error) {
	start := time.Now()
	res := &domain.ExecutionResult{
		RunID:       uuid.NewString(),
		FallbackLog: []domain.FallbackLogEntry{},
	}
	log := e.log.With("run_id", res.RunID, "task", task.ID)

	var attempted []string
	var lastErr error

	for _, raw := range order {
		if err := ctx.Err(); err != nil {
			res.ExecutionTime = time.Since(start)
			res.Error = err.Error()
			return res, fmt.Errorf("execution cancelled: %w", err)
		}

		name := e.registry.Normalize(raw)
		p, ok := e.registry.Get(name)
		if !ok {
			log.Warn("Skipping unknown provider", "provider", raw)
			continue
		}

		e.registry.BeginAttempt(name)
		metrics.ProviderAttempts.WithLabelValues(name).Inc()
		log.Debug("Invoking provider", "provider", name)

		callStart := time.Now()
		out, err := p.Execute(ctx, task, ec)
		if cerr := ctx.Err(); cerr != nil && err != nil && errors.Is(err, cerr) {
			// The caller gave up; the provider did not fail.
			e.registry.CancelAttempt(name)
			log.Info("Provider call cancelled", "provider", name)
			res.ExecutionTime = time.Since(start)
			res.Error = cerr.Error()
			return res, fmt.Errorf("execution cancelled: %w", cerr)
		}
		if err == nil && out != nil && !out.Success {
			err = &domain.ExecutionError{Provider: name, Message: "provider reported failure", Stdout: out.Output}
		}
		latency := time.Since(callStart)

		if err == nil {
			if out == nil {
				out = &domain.TaskResult{Success: true}
			}
			e.registry.RecordSuccess(name)
			metrics.ProviderLatency.WithLabelValues(name, "success").Observe(latency.Seconds())
			log.Info("Provider succeeded", "provider", name, "latency", latency, "failed_before", len(res.FallbackLog))

			res.Success = true
			res.Provider = name
			res.Result = out
			res.ExecutionTime = time.Since(start)
			return res, nil
		}

		err = domain.AsProviderFailure(name, err)
		entry := newFallbackEntry(name, err, e.now())
		res.FallbackLog = append(res.FallbackLog, entry)
		e.registry.RecordFailure(name)
		metrics.ProviderFailures.WithLabelValues(name, string(entry.Type)).Inc()
		metrics.ProviderLatency.WithLabelValues(name, "failure").Observe(latency.Seconds())
		log.Warn("Provider failed, falling back", "provider", name, "type", entry.Type, "error", err)

		attempted = append(attempted, name)
		lastErr = err
	}

	res.ExecutionTime = time.Since(start)
	failErr := &domain.AllProvidersFailedError{Attempted: attempted, Err: lastErr}
	if lastErr != nil {
		failErr.LastError = lastErr.Error()
	}
	res.Error = failErr.Error()
	log.Error("All providers failed", "attempted", attempted, "duration", res.ExecutionTime)
	return res, failErr
}

func newFallbackEntry(name string, err error, ts time.Time) domain.FallbackLogEntry {
	entry := domain.FallbackLogEntry{
		Provider:  name,
		Error:     err.Error(),
		Type:      domain.FailureTypeUnknown,
		Timestamp: ts,
	}

	var timeoutErr *domain.TimeoutError
	var execErr *domain.ExecutionError
	switch {
	case errors.As(err, &timeoutErr):
		entry.Type = domain.FailureTypeTimeout
		entry.Details.Timeout = timeoutErr.Timeout
	case errors.As(err, &execErr):
		entry.Type = domain.FailureTypeExecution
		entry.Details.Stdout = execErr.Stdout
		entry.Details.Stderr = execErr.Stderr
		entry.Details.ExitCode = execErr.ExitCode
	}
	return entry
}
