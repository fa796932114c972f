package provider

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// ErrUnknownProvider is returned when a name resolves to no registered provider.
var ErrUnknownProvider = errors.New("unknown provider")

// Registry holds the registered providers, their configured order and their
// usage statistics. Stats are mutated only through BeginAttempt,
// RecordSuccess, RecordFailure, ResetStreak and Reset.
type Registry struct {
	mu        sync.RWMutex
	names     []string
	order     []string
	aliases   map[string]string
	providers map[string]Provider
	stats     map[string]*domain.ProviderStats
	now       func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		aliases:   make(map[string]string),
		providers: make(map[string]Provider),
		stats:     make(map[string]*domain.ProviderStats),
		now:       time.Now,
	}
}

// SetClock overrides the time source used for stat timestamps.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Register adds a provider under its name plus optional aliases and appends
// it to the configured order. Re-registering a name replaces the provider
// but keeps its stats and position.
func (r *Registry) Register(p Provider, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.TrimSpace(p.GetName())
	if existing, ok := r.aliases[strings.ToLower(name)]; ok {
		name = existing
	}
	if _, exists := r.providers[name]; !exists {
		r.names = append(r.names, name)
		r.order = append(r.order, name)
		r.stats[name] = &domain.ProviderStats{}
	}
	r.providers[name] = p
	r.aliases[strings.ToLower(name)] = name
	for _, a := range aliases {
		r.aliases[strings.ToLower(strings.TrimSpace(a))] = name
	}
}

// SetOrder replaces the configured order. Names are alias-normalized;
// names that match no provider are kept so callers can skip them.
func (r *Registry) SetOrder(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order := make([]string, 0, len(names))
	for _, n := range names {
		order = append(order, r.normalizeLocked(n))
	}
	r.order = order
}

// Order returns a copy of the configured order.
func (r *Registry) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Normalize resolves aliases and case to the registered provider name.
// Unknown names are returned trimmed.
func (r *Registry) Normalize(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.normalizeLocked(name)
}

func (r *Registry) normalizeLocked(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := r.aliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// Get returns the provider registered under name or one of its aliases.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[r.normalizeLocked(name)]
	return p, ok
}

// Providers returns registered providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.providers[name])
	}
	return out
}

// BeginAttempt counts an attempt and stamps LastUsed. Call it immediately
// before invoking the provider.
func (r *Registry) BeginAttempt(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[r.normalizeLocked(name)]; ok {
		s.Attempts++
		s.LastUsed = r.now()
	}
}

// RecordSuccess tracks a successful attempt.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[r.normalizeLocked(name)]; ok {
		s.Successes++
		s.ConsecutiveFailures = 0
		s.LastSuccess = r.now()
	}
}

// RecordFailure tracks a failed attempt.
func (r *Registry) RecordFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[r.normalizeLocked(name)]; ok {
		s.Failures++
		s.ConsecutiveFailures++
		s.LastFailure = r.now()
	}
}

// CancelAttempt undoes BeginAttempt for a call the caller abandoned, so the
// attempt counts neither as success nor as failure.
func (r *Registry) CancelAttempt(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[r.normalizeLocked(name)]; ok && s.Attempts > s.Successes+s.Failures {
		s.Attempts--
	}
}

// ResetStreakIfStale clears the failure streak when the last failure is not
// after before. Check and reset happen under one lock so a failure recorded
// concurrently is never erased. It reports whether the streak is clear.
func (r *Registry) ResetStreakIfStale(name string, before time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[r.normalizeLocked(name)]
	if !ok {
		return false
	}
	if s.ConsecutiveFailures == 0 {
		return true
	}
	if s.LastFailure.After(before) {
		return false
	}
	s.ConsecutiveFailures = 0
	return true
}

// Stats returns a copy of one provider's statistics.
func (r *Registry) Stats(name string) (domain.ProviderStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stats[r.normalizeLocked(name)]
	if !ok {
		return domain.ProviderStats{}, false
	}
	return *s, true
}

// Snapshot returns a copy of all statistics keyed by provider name.
func (r *Registry) Snapshot() map[string]domain.ProviderStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.ProviderStats, len(r.stats))
	for name, s := range r.stats {
		out[name] = *s
	}
	return out
}

// Restore loads previously persisted statistics. Entries for providers that
// are not registered are ignored.
func (r *Registry) Restore(stats map[string]domain.ProviderStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range stats {
		if existing, ok := r.stats[r.normalizeLocked(name)]; ok {
			*existing = s
		}
	}
}

// Reset zeroes statistics for one provider, or for all when name is "" or "all".
func (r *Registry) Reset(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || strings.EqualFold(name, "all") {
		for _, s := range r.stats {
			*s = domain.ProviderStats{}
		}
		return nil
	}

	s, ok := r.stats[r.normalizeLocked(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	*s = domain.ProviderStats{}
	return nil
}
