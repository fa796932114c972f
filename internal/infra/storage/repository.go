package storage

import (
	"context"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// StatsRepository persists provider statistics between runs.
type StatsRepository interface {
	// Load returns the stored stats keyed by provider name.
	Load(ctx context.Context) (map[string]domain.ProviderStats, error)

	// Save upserts stats for every provider in the map.
	Save(ctx context.Context, stats map[string]domain.ProviderStats) error

	// Delete removes stored stats for a provider; "" removes all.
	Delete(ctx context.Context, name string) error
}
