package control

import (
	"context"
	"errors"

	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/routing"
	"github.com/vietddude/taskrelay/internal/recovery"
)

// RunReport describes one task run including any recovery.
type RunReport struct {
	Execution      *domain.ExecutionResult
	Classification *recovery.Classification
	Recovery       *recovery.Outcome
}

// Succeeded reports whether a provider completed the task.
func (r *RunReport) Succeeded() bool {
	return r.Execution != nil && r.Execution.Success
}

// RunTask executes task in mode. When execution fails the error is
// classified and handed to the recovery manager, whose retries re-run the
// circuit-breaker chain and whose fallback starts from the best-scored
// provider. The returned error is nil only when a provider completed the task.
// An exhausted chain is recovered according to its last provider error unless
// a configured rule covers AllProvidersFailedError itself.
func (a *App) RunTask(ctx context.Context, task domain.Task, mode routing.Mode) (*RunReport, error) {
	ec := domain.ExecContext{
		WorkDir:    a.cfg.Execution.WorkDir,
		MaxRetries: a.cfg.Execution.MaxRetries,
	}

	res, err := a.orchestrator.Execute(ctx, mode, task, ec)
	report := &RunReport{Execution: res}
	if err == nil {
		return report, nil
	}
	if ctx.Err() != nil {
		return report, err
	}

	rc := recovery.Context{
		MaxRetries:   a.cfg.Recovery.MaxRetries,
		RetryDelay:   a.cfg.Recovery.RetryDelay,
		InitialDelay: a.cfg.Recovery.InitialDelay,
		MaxDelay:     a.cfg.Recovery.MaxDelay,
		RetryOperation: func(ctx context.Context, attempt int) (any, error) {
			a.log.Info("Retrying task", "task", task.ID, "attempt", attempt)
			return a.orchestrator.ExecuteWithCircuitBreaker(ctx, task, ec)
		},
		FallbackOperation: func(ctx context.Context) (any, error) {
			a.log.Info("Falling back to best provider", "task", task.ID)
			return a.orchestrator.ExecuteWithBestProvider(ctx, task, ec)
		},
	}

	out := a.recovery.HandleError(ctx, a.recoveryCause(err), rc)
	report.Classification = &out.Classification
	report.Recovery = &out

	if recovered, ok := out.Result.(*domain.ExecutionResult); ok && recovered != nil {
		report.Execution = recovered
	}
	if report.Succeeded() {
		return report, nil
	}
	if out.Err != nil && !errors.Is(err, out.Err) {
		return report, out.Err
	}
	return report, err
}

func (a *App) recoveryCause(err error) error {
	var allFailed *domain.AllProvidersFailedError
	if !errors.As(err, &allFailed) || allFailed.Err == nil {
		return err
	}
	if a.recovery.Classifier().Customized(allFailed.TypeName()) {
		return err
	}
	return allFailed.Err
}
