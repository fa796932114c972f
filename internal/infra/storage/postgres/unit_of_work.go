package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

// UnitOfWork bundles stat writes into a single database transaction.
type UnitOfWork struct {
	tx *sqlx.Tx
}

// NewUnitOfWork creates a new unit of work with an active transaction.
func (db *DB) NewUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	err := u.tx.Commit()
	u.tx = nil
	return err
}

// Rollback rolls back the transaction. Safe to call multiple times.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback()
	u.tx = nil
	return err
}

const upsertStatsQuery = `INSERT INTO provider_stats (
	provider, attempts, successes, failures, consecutive_failures,
	last_used, last_success, last_failure, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (provider) DO UPDATE SET
	attempts = EXCLUDED.attempts,
	successes = EXCLUDED.successes,
	failures = EXCLUDED.failures,
	consecutive_failures = EXCLUDED.consecutive_failures,
	last_used = EXCLUDED.last_used,
	last_success = EXCLUDED.last_success,
	last_failure = EXCLUDED.last_failure,
	updated_at = NOW()`

// UpsertProviderStats writes the stats of one provider.
func (u *UnitOfWork) UpsertProviderStats(ctx context.Context, name string, s domain.ProviderStats) error {
	_, err := u.tx.ExecContext(ctx, upsertStatsQuery,
		name,
		s.Attempts,
		s.Successes,
		s.Failures,
		s.ConsecutiveFailures,
		nullTime(s.LastUsed),
		nullTime(s.LastSuccess),
		nullTime(s.LastFailure),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stats for %s: %w", name, err)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
