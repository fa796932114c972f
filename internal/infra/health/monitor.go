package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// Checker probes every configured provider.
type Checker interface {
	CheckAllProviderHealth(ctx context.Context) map[string]bool
	GetProviderStats() map[string]domain.ProviderStats
}

// Config controls how stats translate into provider status.
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	// CacheTTL limits how often providers are actually probed.
	CacheTTL time.Duration
}

// Monitor aggregates provider reachability and circuit state.
type Monitor struct {
	checker    Checker
	cfg        Config
	now        func() time.Time
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(checker Checker, cfg Config) *Monitor {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 5 * time.Minute
	}
	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}
	return &Monitor{checker: checker, cfg: cfg, now: time.Now}
}

// CheckHealth probes all providers, reusing the previous report while it is
// younger than CacheTTL.
func (m *Monitor) CheckHealth(ctx context.Context) *HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.lastReport != nil && now.Sub(m.lastCheck) < m.cfg.CacheTTL {
		return m.lastReport
	}

	reachable := m.checker.CheckAllProviderHealth(ctx)
	stats := m.checker.GetProviderStats()

	report := &HealthReport{
		CheckedAt: now,
		Providers: make(map[string]ProviderHealth, len(reachable)),
	}
	for name, ok := range reachable {
		s := stats[name]
		ph := ProviderHealth{
			Name:                name,
			Status:              StatusHealthy,
			Reachable:           ok,
			ConsecutiveFailures: s.ConsecutiveFailures,
			SuccessRate:         s.SuccessRate(),
			LastUsed:            s.LastUsed,
		}
		ph.CircuitOpen = s.ConsecutiveFailures >= m.cfg.FailureThreshold &&
			now.Sub(s.LastFailure) < m.cfg.ResetTimeout

		switch {
		case !ok:
			ph.Status = StatusCritical
		case ph.CircuitOpen:
			ph.Status = StatusDegraded
		}
		report.Providers[name] = ph
	}
	report.SystemStatus = Aggregate(report.Providers)

	m.lastCheck = now
	m.lastReport = report
	return report
}
