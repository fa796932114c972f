package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// StatsRepo implements storage.StatsRepository using PostgreSQL.
type StatsRepo struct {
	db *DB
}

// NewStatsRepo creates a new PostgreSQL stats repository.
func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

type statsRow struct {
	Provider            string       `db:"provider"`
	Attempts            int          `db:"attempts"`
	Successes           int          `db:"successes"`
	Failures            int          `db:"failures"`
	ConsecutiveFailures int          `db:"consecutive_failures"`
	LastUsed            sql.NullTime `db:"last_used"`
	LastSuccess         sql.NullTime `db:"last_success"`
	LastFailure         sql.NullTime `db:"last_failure"`
}

func (r statsRow) toDomain() domain.ProviderStats {
	s := domain.ProviderStats{
		Attempts:            r.Attempts,
		Successes:           r.Successes,
		Failures:            r.Failures,
		ConsecutiveFailures: r.ConsecutiveFailures,
	}
	if r.LastUsed.Valid {
		s.LastUsed = r.LastUsed.Time
	}
	if r.LastSuccess.Valid {
		s.LastSuccess = r.LastSuccess.Time
	}
	if r.LastFailure.Valid {
		s.LastFailure = r.LastFailure.Time
	}
	return s
}

const selectStatsQuery = `SELECT provider, attempts, successes, failures, consecutive_failures,
	last_used, last_success, last_failure
FROM provider_stats
ORDER BY provider`

// Load returns every stored provider's stats.
func (r *StatsRepo) Load(ctx context.Context) (map[string]domain.ProviderStats, error) {
	var rows []statsRow
	if err := r.db.SelectContext(ctx, &rows, selectStatsQuery); err != nil {
		return nil, fmt.Errorf("failed to load provider stats: %w", err)
	}

	out := make(map[string]domain.ProviderStats, len(rows))
	for _, row := range rows {
		out[row.Provider] = row.toDomain()
	}
	return out, nil
}

// Save upserts all stats in one transaction.
func (r *StatsRepo) Save(ctx context.Context, stats map[string]domain.ProviderStats) error {
	if len(stats) == 0 {
		return nil
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	uow, err := r.db.NewUnitOfWork(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = uow.Rollback() }()

	for _, name := range names {
		if err := uow.UpsertProviderStats(ctx, name, stats[name]); err != nil {
			return err
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit provider stats: %w", err)
	}
	return nil
}

// Delete removes a provider's stats, or all stats when name is empty.
func (r *StatsRepo) Delete(ctx context.Context, name string) error {
	var err error
	if name == "" {
		_, err = r.db.ExecContext(ctx, `DELETE FROM provider_stats`)
	} else {
		_, err = r.db.ExecContext(ctx, `DELETE FROM provider_stats WHERE provider = $1`, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete provider stats: %w", err)
	}
	return nil
}
