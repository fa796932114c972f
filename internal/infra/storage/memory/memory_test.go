package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/taskrelay/internal/core/domain"
)

func TestStatsRepo_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewStatsRepo()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, map[string]domain.ProviderStats{
		"codex":  {Attempts: 2, Successes: 1, Failures: 1, LastUsed: now},
		"claude": {Attempts: 1, Successes: 1, LastSuccess: now},
	}))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, 2, loaded["codex"].Attempts)

	// Load returns a copy.
	loaded["codex"] = domain.ProviderStats{}
	again, _ := repo.Load(ctx)
	assert.Equal(t, 2, again["codex"].Attempts)

	require.NoError(t, repo.Delete(ctx, "codex"))
	again, _ = repo.Load(ctx)
	assert.NotContains(t, again, "codex")

	require.NoError(t, repo.Delete(ctx, ""))
	again, _ = repo.Load(ctx)
	assert.Empty(t, again)
}
