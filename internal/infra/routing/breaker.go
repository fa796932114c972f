package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/metrics"
	"github.com/vietddude/taskrelay/internal/infra/provider"
)

const (
	DefaultFailureThreshold = 3
	DefaultResetTimeout     = 5 * time.Minute
)

// BreakerConfig controls when a provider is excluded from the chain.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	return c
}

// CircuitBreaker narrows the provider order to providers whose circuit is
// closed, then delegates to a FallbackExecutor. Circuit state is derived from
// ProviderStats on every call; nothing runs in the background.
type CircuitBreaker struct {
	registry *provider.Registry
	executor *FallbackExecutor
	now      func() time.Time
	log      *slog.Logger
}

// NewCircuitBreaker creates a breaker in front of the given executor.
func NewCircuitBreaker(registry *provider.Registry, executor *FallbackExecutor) *CircuitBreaker {
	return &CircuitBreaker{
		registry: registry,
		executor: executor,
		now:      time.Now,
		log:      slog.Default().With("component", "circuit_breaker"),
	}
}

// Eligible returns the providers of order whose circuit is closed. A provider
// whose reset timeout has elapsed gets its failure streak cleared and is
// admitted again.
func (cb *CircuitBreaker) Eligible(order []string, cfg BreakerConfig) []string {
	cfg = cfg.withDefaults()
	now := cb.now()

	eligible := make([]string, 0, len(order))
	for _, raw := range order {
		name := cb.registry.Normalize(raw)
		stats, ok := cb.registry.Stats(name)
		if !ok {
			continue
		}

		if stats.ConsecutiveFailures < cfg.FailureThreshold {
			eligible = append(eligible, name)
			continue
		}

		if cb.registry.ResetStreakIfStale(name, now.Add(-cfg.ResetTimeout)) {
			cb.log.Info("Circuit closed after reset timeout", "provider", name, "failures", stats.ConsecutiveFailures)
			eligible = append(eligible, name)
			continue
		}

		metrics.CircuitExcluded.WithLabelValues(name).Inc()
		cb.log.Debug("Circuit open, skipping provider",
			"provider", name,
			"failures", stats.ConsecutiveFailures,
			"retry_in", cfg.ResetTimeout-now.Sub(stats.LastFailure),
		)
	}
	return eligible
}

// Execute runs the task over the registry order narrowed to eligible providers.
func (cb *CircuitBreaker) Execute(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
	cfg BreakerConfig,
) (*domain.ExecutionResult, error) {
	return cb.ExecuteWithOrder(ctx, task, ec, cb.registry.Order(), cfg)
}

// ExecuteWithOrder is Execute with an explicit starting order.
func (cb *CircuitBreaker) ExecuteWithOrder(
	ctx context.Context,
	task domain.Task,
	ec domain.ExecContext,
	order []string,
	cfg BreakerConfig,
) (*domain.ExecutionResult, error) {
	eligible := cb.Eligible(order, cfg)
	if len(eligible) == 0 && cb.anyRegistered(order) {
		cb.log.Warn("All providers in circuit breaker state", "task", task.ID)
		return &domain.ExecutionResult{
			RunID:       uuid.NewString(),
			FallbackLog: []domain.FallbackLogEntry{},
			Error:       domain.ErrCircuitOpen.Error(),
		}, domain.ErrCircuitOpen
	}
	return cb.executor.ExecuteWithOrder(ctx, task, ec, eligible)
}

func (cb *CircuitBreaker) anyRegistered(order []string) bool {
	for _, name := range order {
		if _, ok := cb.registry.Get(name); ok {
			return true
		}
	}
	return false
}
