package memory

import (
	"context"
	"sync"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// StatsRepo keeps provider stats in process memory.
type StatsRepo struct {
	stats map[string]domain.ProviderStats
	mu    sync.RWMutex
}

func NewStatsRepo() *StatsRepo {
	return &StatsRepo{stats: make(map[string]domain.ProviderStats)}
}

func (r *StatsRepo) Load(ctx context.Context) (map[string]domain.ProviderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.ProviderStats, len(r.stats))
	for name, s := range r.stats {
		out[name] = s
	}
	return out, nil
}

func (r *StatsRepo) Save(ctx context.Context, stats map[string]domain.ProviderStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range stats {
		r.stats[name] = s
	}
	return nil
}

func (r *StatsRepo) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		r.stats = make(map[string]domain.ProviderStats)
		return nil
	}
	delete(r.stats, name)
	return nil
}
