package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

func newMockRepo(t *testing.T) (*StatsRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return NewStatsRepo(&DB{DB: sqlx.NewDb(mockDB, "pgx")}), mock
}

var statsColumns = []string{
	"provider", "attempts", "successes", "failures", "consecutive_failures",
	"last_used", "last_success", "last_failure",
}

func TestStatsRepo_Load(t *testing.T) {
	repo, mock := newMockRepo(t)
	used := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT provider, attempts")).
		WillReturnRows(sqlmock.NewRows(statsColumns).
			AddRow("claude", 4, 3, 1, 0, used, used, used).
			AddRow("codex", 2, 0, 2, 2, used, nil, used))

	stats, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, domain.ProviderStats{
		Attempts: 4, Successes: 3, Failures: 1,
		LastUsed: used, LastSuccess: used, LastFailure: used,
	}, stats["claude"])
	assert.Equal(t, 2, stats["codex"].ConsecutiveFailures)
	assert.True(t, stats["codex"].LastSuccess.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_LoadError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation does not exist"))

	_, err := repo.Load(context.Background())
	assert.ErrorContains(t, err, "failed to load provider stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_SaveUpsertsInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	upsert := regexp.QuoteMeta("INSERT INTO provider_stats")

	mock.ExpectBegin()
	mock.ExpectExec(upsert).
		WithArgs("claude", 1, 1, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).
		WithArgs("codex", 1, 0, 1, 1, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now()
	err := repo.Save(context.Background(), map[string]domain.ProviderStats{
		"codex":  {Attempts: 1, Failures: 1, ConsecutiveFailures: 1, LastUsed: now, LastFailure: now},
		"claude": {Attempts: 1, Successes: 1, LastUsed: now, LastSuccess: now},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_SaveRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO provider_stats").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), map[string]domain.ProviderStats{"codex": {Attempts: 1}})
	assert.ErrorContains(t, err, "failed to upsert stats for codex")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_SaveEmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.Save(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepo_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM provider_stats WHERE provider = $1")).
		WithArgs("codex").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM provider_stats")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.Delete(context.Background(), "codex"))
	require.NoError(t, repo.Delete(context.Background(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_CommitTwice(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := &DB{DB: sqlx.NewDb(mockDB, "pgx")}

	mock.ExpectBegin()
	mock.ExpectCommit()

	uow, err := db.NewUnitOfWork(context.Background())
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	assert.Error(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
