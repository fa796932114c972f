package advisor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Cache stores recommendations by task and candidate set.
type Cache interface {
	Get(ctx context.Context, key string) (*Recommendation, bool, error)
	Set(ctx context.Context, key string, rec *Recommendation) error
}

// CacheKey builds the lookup key for a task and its candidate providers.
// Candidate order does not matter.
func CacheKey(taskID string, candidates []string) string {
	sorted := append([]string(nil), candidates...)
	for i := range sorted {
		sorted[i] = strings.ToLower(sorted[i])
	}
	sort.Strings(sorted)
	return taskID + "|" + strings.Join(sorted, ",")
}

type cachedRecommendation struct {
	rec      Recommendation
	storedAt time.Time
}

// MemoryCache is an in-process TTL cache. Stale entries are dropped on read;
// there is no background eviction.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cachedRecommendation
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cachedRecommendation),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the entry if it is younger than the TTL.
func (c *MemoryCache) Get(_ context.Context, key string) (*Recommendation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false, nil
	}
	rec := entry.rec
	rec.Alternatives = append([]string(nil), entry.rec.Alternatives...)
	return &rec, true, nil
}

// Set stores a copy of rec.
func (c *MemoryCache) Set(_ context.Context, key string, rec *Recommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *rec
	stored.Alternatives = append([]string(nil), rec.Alternatives...)
	c.entries[key] = cachedRecommendation{rec: stored, storedAt: c.now()}
	return nil
}

// Len returns the number of stored entries, including stale ones not yet read.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
