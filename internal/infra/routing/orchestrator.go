package routing

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/metrics"
	"github.com/vietddude/taskrelay/internal/infra/provider"
)

// Mode selects which execution entry point the task engine uses.
type Mode string

const (
	ModeFallback Mode = "fallback"
	ModeCircuit  Mode = "circuit"
	ModeBest     Mode = "best"
	ModeAdvised  Mode = "advised"
)

// ParseMode validates a mode name. An empty name means ModeCircuit.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeCircuit, nil
	case ModeFallback, ModeCircuit, ModeBest, ModeAdvised:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown execution mode %q", s)
	}
}

// Advisor recommends a provider for a specific task. Implementations must
// always return a usable answer or ok=false; they never block execution.
type Advisor interface {
	BestProvider(ctx context.Context, task domain.Task) (string, bool)
}

// Orchestrator exposes the provider execution entry points.
type Orchestrator struct {
	registry *provider.Registry
	executor *FallbackExecutor
	breaker  *CircuitBreaker
	selector *ScoredSelector
	advisor  Advisor
	cfg      BreakerConfig
	log      *slog.Logger
}

// NewOrchestrator wires an executor, breaker and selector over the registry.
func NewOrchestrator(registry *provider.Registry, cfg BreakerConfig) *Orchestrator {
	executor := NewFallbackExecutor(registry)
	return &Orchestrator{
		registry: registry,
		executor: executor,
		breaker:  NewCircuitBreaker(registry, executor),
		selector: NewScoredSelector(registry),
		cfg:      cfg.withDefaults(),
		log:      slog.Default().With("component", "orchestrator"),
	}
}

// SetAdvisor installs the advisor used by ExecuteWithAIAssistedProvider.
func (o *Orchestrator) SetAdvisor(a Advisor) {
	o.advisor = a
}

// Registry returns the provider registry.
func (o *Orchestrator) Registry() *provider.Registry {
	return o.registry
}

// Selector returns the statistics-based selector.
func (o *Orchestrator) Selector() *ScoredSelector {
	return o.selector
}

// Breaker returns the circuit breaker.
func (o *Orchestrator) Breaker() *CircuitBreaker {
	return o.breaker
}

// Execute dispatches to the entry point for mode.
func (o *Orchestrator) Execute(
	ctx context.Context,
	mode Mode,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.ExecutionResult, error) {
	switch mode {
	case ModeFallback:
		return o.ExecuteWithFallback(ctx, task, ec)
	case ModeBest:
		return o.ExecuteWithBestProvider(ctx, task, ec)
	case ModeAdvised:
		return o.ExecuteWithAIAssistedProvider(ctx, task, ec)
	default:
		return o.ExecuteWithCircuitBreaker(ctx, task, ec)
	}
}

// ExecuteWithFallback tries every configured provider in order.
func (o *Orchestrator) ExecuteWithFallback(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.ExecutionResult, error) {
	res, err := o.executor.Execute(ctx, task, ec)
	observe(ModeFallback, res)
	return res, err
}

// ExecuteWithCircuitBreaker tries the configured providers whose circuit is closed.
func (o *Orchestrator) ExecuteWithCircuitBreaker(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.ExecutionResult, error) {
	res, err := o.breaker.Execute(ctx, task, ec, o.cfg)
	observe(ModeCircuit, res)
	return res, err
}

// ExecuteWithBestProvider tries the highest-scoring provider first, then the
// rest of the configured order.
func (o *Orchestrator) ExecuteWithBestProvider(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.ExecutionResult, error) {
	order := o.registry.Order()
	if best, ok := o.selector.Best(); ok {
		o.log.Debug("Selected best provider", "provider", best, "task", task.ID)
		order = promote(order, best, o.registry.Normalize)
	}
	res, err := o.executor.ExecuteWithOrder(ctx, task, ec, order)
	observe(ModeBest, res)
	return res, err
}

// ExecuteWithAIAssistedProvider tries the advisor's recommendation first,
// falling back to the scored choice when no advice is usable.
func (o *Orchestrator) ExecuteWithAIAssistedProvider(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
) (*domain.ExecutionResult, error) {
	order := o.registry.Order()

	first, ok := "", false
	if o.advisor != nil {
		first, ok = o.advisor.BestProvider(ctx, task)
	}
	if !ok {
		first, ok = o.selector.Best()
	}
	if ok {
		o.log.Info("Starting with recommended provider", "provider", first, "task", task.ID)
		order = promote(order, first, o.registry.Normalize)
	}

	res, err := o.executor.ExecuteWithOrder(ctx, task, ec, order)
	observe(ModeAdvised, res)
	return res, err
}

// GetProviderStats returns a snapshot of all provider statistics.
func (o *Orchestrator) GetProviderStats() map[string]domain.ProviderStats {
	return o.registry.Snapshot()
}

// ResetProviderStats zeroes statistics for one provider, or all when name is "" or "all".
func (o *Orchestrator) ResetProviderStats(name string) error {
	if err := o.registry.Reset(name); err != nil {
		return err
	}
	o.log.Info("Provider stats reset", "provider", name)
	return nil
}

// CheckAllProviderHealth probes every registered provider concurrently.
func (o *Orchestrator) CheckAllProviderHealth(ctx context.Context) map[string]bool {
	providers := o.registry.Providers()
	results := make([]bool, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			results[i] = p.HealthCheck(gctx)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]bool, len(providers))
	for i, p := range providers {
		name := o.registry.Normalize(p.GetName())
		out[name] = results[i]
		healthy := 0.0
		if results[i] {
			healthy = 1
		}
		metrics.ProviderHealthy.WithLabelValues(name).Set(healthy)
	}
	return out
}

func observe(mode Mode, res *domain.ExecutionResult) {
	outcome := "failure"
	if res != nil && res.Success {
		outcome = "success"
	}
	metrics.ExecutionsTotal.WithLabelValues(string(mode), outcome).Inc()
}
