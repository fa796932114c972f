package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/taskrelay/internal/infra/metrics"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
)

var (
	ErrNoRetryOperation    = errors.New("no retry operation provided")
	ErrNoFallbackOperation = errors.New("no fallback operation provided")
	ErrNoRetriesAllowed    = errors.New("no retries allowed")
)

// Context is the caller-supplied input for one recovery. The manager never
// modifies it.
type Context struct {
	// MaxRetries bounds retries. Zero disables them; negative means DefaultMaxRetries.
	MaxRetries   int
	RetryDelay   time.Duration
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// RetryOperation re-runs the failed work. attempt starts at 1.
	RetryOperation func(ctx context.Context, attempt int) (any, error)

	// FallbackOperation runs alternative work, typically the next provider.
	FallbackOperation func(ctx context.Context) (any, error)
}

func (c Context) withDefaults() Context {
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	return c
}

// Outcome reports what a recovery did.
type Outcome struct {
	Success        bool
	Strategy       Strategy
	Classification Classification
	Result         any
	Err            error
	Attempts       int
	Delays         []time.Duration
	Skipped        bool
	Degraded       bool
	UsedFallback   bool
}

// StrategyStats counts recoveries for one strategy.
type StrategyStats struct {
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// Statistics aggregates recovery counts.
type Statistics struct {
	Total      StrategyStats              `json:"total"`
	ByStrategy map[Strategy]StrategyStats `json:"by_strategy"`
}

// Manager dispatches classified errors to recovery strategies.
type Manager struct {
	classifier *Classifier

	mu    sync.Mutex
	hooks map[HookPoint][]Hook
	stats map[Strategy]*StrategyStats

	sleep func(ctx context.Context, d time.Duration) error
	log   *slog.Logger
}

// NewManager creates a recovery manager using the given classifier.
func NewManager(classifier *Classifier) *Manager {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Manager{
		classifier: classifier,
		hooks:      make(map[HookPoint][]Hook),
		stats:      make(map[Strategy]*StrategyStats),
		sleep:      sleepContext,
		log:        slog.Default().With("component", "recovery"),
	}
}

// Classifier returns the classifier used by the manager.
func (m *Manager) Classifier() *Classifier {
	return m.classifier
}

// HandleError classifies err and runs the matching strategy.
func (m *Manager) HandleError(ctx context.Context, err error, rc Context) Outcome {
	class := m.classifier.Classify(err)
	rc = rc.withDefaults()

	m.log.Info("Recovering from error",
		"error_type", class.ErrorType,
		"strategy", class.Strategy,
		"severity", class.Severity,
		"error", err,
	)

	m.fire(ctx, HookEvent{Point: PreRecovery, Err: err, Classification: class, Context: rc})

	var out Outcome
	switch class.Strategy {
	case StrategyRetryWithFallback:
		out = m.retryWithFallback(ctx, rc)
	case StrategyRetryWithBackoff:
		out = m.retryWithBackoff(ctx, rc)
	case StrategyRetryOnce:
		out = m.retryOnce(ctx, rc)
	case StrategySkipAndContinue:
		out = Outcome{Success: true, Skipped: true}
	case StrategyFallbackToNextProvider:
		out = m.fallback(ctx, rc)
	case StrategyContinueWithoutOllama:
		out = Outcome{Success: true, Degraded: true}
	default:
		out = Outcome{Success: false, Err: err}
	}
	out.Strategy = class.Strategy
	out.Classification = class

	m.recordStats(class.Strategy, out.Success)

	point := RecoveryFailure
	if out.Success {
		point = RecoverySuccess
	}
	m.fire(ctx, HookEvent{Point: point, Err: err, Classification: class, Context: rc, Outcome: &out})
	m.fire(ctx, HookEvent{Point: PostRecovery, Err: err, Classification: class, Context: rc, Outcome: &out})

	if out.Success {
		m.log.Info("Recovery succeeded", "strategy", class.Strategy, "attempts", out.Attempts)
	} else {
		m.log.Warn("Recovery failed", "strategy", class.Strategy, "attempts", out.Attempts, "error", out.Err)
	}
	return out
}

// Statistics returns a snapshot of per-strategy counts.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Statistics{ByStrategy: make(map[Strategy]StrategyStats, len(m.stats))}
	for name, st := range m.stats {
		s.ByStrategy[name] = *st
		s.Total.Attempts += st.Attempts
		s.Total.Successes += st.Successes
		s.Total.Failures += st.Failures
	}
	return s
}

func (m *Manager) recordStats(strategy Strategy, success bool) {
	m.mu.Lock()
	st, ok := m.stats[strategy]
	if !ok {
		st = &StrategyStats{}
		m.stats[strategy] = st
	}
	st.Attempts++
	outcome := "failure"
	if success {
		st.Successes++
		outcome = "success"
	} else {
		st.Failures++
	}
	m.mu.Unlock()

	metrics.RecoveryAttempts.WithLabelValues(string(strategy), outcome).Inc()
}

// =============================================================================
// Strategies
// =============================================================================

func (m *Manager) retryWithFallback(ctx context.Context, rc Context) Outcome {
	if rc.RetryOperation == nil && rc.FallbackOperation == nil {
		return Outcome{Err: ErrNoRetryOperation}
	}

	var out Outcome
	if rc.RetryOperation != nil {
		for attempt := 1; attempt <= rc.MaxRetries; attempt++ {
			if err := m.wait(ctx, rc.RetryDelay, &out); err != nil {
				return out
			}
			out.Attempts++
			result, err := rc.RetryOperation(ctx, attempt)
			if err == nil {
				out.Success, out.Result, out.Err = true, result, nil
				return out
			}
			out.Err = err
			m.log.Debug("Retry failed", "attempt", attempt, "error", err)
		}
	}

	if rc.FallbackOperation == nil {
		out.Err = exhausted(out)
		return out
	}

	out.UsedFallback = true
	result, err := rc.FallbackOperation(ctx)
	if err != nil {
		out.Err = fmt.Errorf("fallback failed: %w", err)
		return out
	}
	out.Success, out.Result, out.Err = true, result, nil
	return out
}

func (m *Manager) retryWithBackoff(ctx context.Context, rc Context) Outcome {
	if rc.RetryOperation == nil {
		return Outcome{Err: ErrNoRetryOperation}
	}

	backoff := ExponentialBackoff{InitialDelay: rc.InitialDelay, MaxDelay: rc.MaxDelay}
	var out Outcome
	for attempt := 1; attempt <= rc.MaxRetries; attempt++ {
		if err := m.wait(ctx, backoff.GetDelay(attempt-1), &out); err != nil {
			return out
		}
		out.Attempts++
		result, err := rc.RetryOperation(ctx, attempt)
		if err == nil {
			out.Success, out.Result, out.Err = true, result, nil
			return out
		}
		out.Err = err
		m.log.Debug("Backoff retry failed", "attempt", attempt, "error", err)
	}

	out.Err = exhausted(out)
	return out
}

func exhausted(out Outcome) error {
	if out.Attempts == 0 {
		return ErrNoRetriesAllowed
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", out.Attempts, out.Err)
}

func (m *Manager) retryOnce(ctx context.Context, rc Context) Outcome {
	if rc.RetryOperation == nil {
		return Outcome{Err: ErrNoRetryOperation}
	}

	var out Outcome
	if err := m.wait(ctx, rc.RetryDelay, &out); err != nil {
		return out
	}
	out.Attempts = 1
	result, err := rc.RetryOperation(ctx, 1)
	if err != nil {
		out.Err = err
		return out
	}
	out.Success, out.Result = true, result
	return out
}

func (m *Manager) fallback(ctx context.Context, rc Context) Outcome {
	if rc.FallbackOperation == nil {
		return Outcome{Err: ErrNoFallbackOperation}
	}

	out := Outcome{UsedFallback: true}
	result, err := rc.FallbackOperation(ctx)
	if err != nil {
		out.Err = fmt.Errorf("fallback failed: %w", err)
		return out
	}
	out.Success, out.Result = true, result
	return out
}

// wait sleeps for d and records it. On cancellation it sets out.Err.
func (m *Manager) wait(ctx context.Context, d time.Duration, out *Outcome) error {
	out.Delays = append(out.Delays, d)
	if err := m.sleep(ctx, d); err != nil {
		out.Err = err
		return err
	}
	return nil
}
