package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/provider"
	"github.com/vietddude/taskrelay/internal/infra/routing"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeBackend struct {
	mu        sync.Mutex
	available bool
	reply     string
	err       error
	calls     int
	lastReq   AdviceRequest
}

func (b *fakeBackend) Available(ctx context.Context) bool { return b.available }

func (b *fakeBackend) Advise(ctx context.Context, req AdviceRequest) (*AdviceResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.lastReq = req
	if b.err != nil {
		return nil, b.err
	}
	return &AdviceResponse{Text: b.reply, Model: "fake", Duration: time.Millisecond}, nil
}

func newRegistry(names ...string) *provider.Registry {
	reg := provider.NewRegistry()
	for _, n := range names {
		reg.Register(&provider.Func{Name: n})
	}
	return reg
}

func newSelector(backend Backend, reg *provider.Registry) *Selector {
	return NewSelector(
		Config{Enabled: true, URL: "http://advisor.test"},
		backend,
		NewMemoryCache(time.Minute),
		reg,
		routing.NewScoredSelector(reg),
	)
}

// =============================================================================
// Recommend
// =============================================================================

func TestSelector_CachesIdenticalRequests(t *testing.T) {
	backend := &fakeBackend{available: true, reply: "Recommended provider: claude\nConfidence score: 90%"}
	s := newSelector(backend, newRegistry("codex", "claude"))
	task := domain.Task{ID: "task-1", Title: "Refactor auth"}

	first, err := s.Recommend(context.Background(), task, []string{"codex", "claude"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := s.Recommend(context.Background(), task, []string{"claude", "codex"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Provider, second.Provider)
	assert.Equal(t, first.Confidence, second.Confidence)

	assert.Equal(t, 1, backend.calls, "backend must be called once for identical requests")
	assert.Equal(t, 0.0, backend.lastReq.Temperature)
	assert.Contains(t, backend.lastReq.TaskDescription, "Refactor auth")
}

func TestSelector_CacheExpires(t *testing.T) {
	backend := &fakeBackend{available: true, reply: "Recommended provider: claude"}
	reg := newRegistry("claude")
	cache := NewMemoryCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	s := NewSelector(Config{Enabled: true}, backend, cache, reg, routing.NewScoredSelector(reg))
	task := domain.Task{ID: "t"}

	_, err := s.Recommend(context.Background(), task, []string{"claude"})
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = s.Recommend(context.Background(), task, []string{"claude"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}

func TestSelector_ShortCircuits(t *testing.T) {
	reg := newRegistry("codex")

	disabled := NewSelector(Config{Enabled: false}, &fakeBackend{available: true}, nil, reg, nil)
	_, err := disabled.Recommend(context.Background(), domain.Task{}, nil)
	assert.ErrorIs(t, err, ErrAdvisorDisabled)

	backend := &fakeBackend{available: false}
	unreachable := newSelector(backend, reg)
	_, err = unreachable.Recommend(context.Background(), domain.Task{}, nil)
	var unavailable *domain.AdvisorUnavailableError
	assert.True(t, errors.As(err, &unavailable))
	assert.Zero(t, backend.calls)
}

func TestSelector_ParseFailureIsNoRecommendation(t *testing.T) {
	backend := &fakeBackend{available: true, reply: "I'm not sure."}
	s := newSelector(backend, newRegistry("codex"))

	_, err := s.Recommend(context.Background(), domain.Task{ID: "t"}, []string{"codex"})
	assert.ErrorIs(t, err, ErrNoRecommendation)
}

// =============================================================================
// BestProvider
// =============================================================================

func TestSelector_BestProviderUsesConfiguredAdvice(t *testing.T) {
	reg := newRegistry("codex", "claude")
	reg.Register(&provider.Func{Name: "claude"}, "claude-code")
	backend := &fakeBackend{available: true, reply: "Recommended provider: Claude-Code"}

	name, ok := newSelector(backend, reg).BestProvider(context.Background(), domain.Task{ID: "t"})
	assert.True(t, ok)
	assert.Equal(t, "claude", name)
}

func TestSelector_BestProviderFallsBack(t *testing.T) {
	reg := newRegistry("codex", "claude")
	reg.BeginAttempt("claude")
	reg.RecordSuccess("claude")

	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{"unconfigured provider", &fakeBackend{available: true, reply: "Recommended provider: gemini"}},
		{"backend error", &fakeBackend{available: true, err: errors.New("model not loaded")}},
		{"unparseable", &fakeBackend{available: true, reply: "no idea"}},
		{"unreachable", &fakeBackend{available: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := newSelector(tt.backend, reg).BestProvider(context.Background(), domain.Task{ID: tt.name})
			assert.True(t, ok)
			assert.Equal(t, "claude", name, "should fall back to scored selection")
		})
	}
}

func TestSelector_BestProviderWhenDisabled(t *testing.T) {
	reg := newRegistry("codex", "claude")
	s := NewSelector(Config{}, nil, nil, reg, routing.NewScoredSelector(reg))

	name, ok := s.BestProvider(context.Background(), domain.Task{})
	assert.True(t, ok)
	assert.Equal(t, "codex", name)
}

// =============================================================================
// Cache
// =============================================================================

func TestCacheKey_IgnoresCandidateOrder(t *testing.T) {
	assert.Equal(t, CacheKey("t1", []string{"b", "A"}), CacheKey("t1", []string{"a", "B"}))
	assert.NotEqual(t, CacheKey("t1", []string{"a"}), CacheKey("t2", []string{"a"}))
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	rec := &Recommendation{Provider: "codex", Alternatives: []string{"claude"}}
	require.NoError(t, c.Set(context.Background(), "k", rec))

	rec.Alternatives[0] = "mutated"
	got, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"claude"}, got.Alternatives)
}
