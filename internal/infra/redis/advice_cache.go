package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/taskrelay/internal/infra/advisor"
)

const adviceKeyPrefix = "taskrelay:advice:"

// AdviceCache stores advisor recommendations in Redis so they survive
// process restarts and are shared between CLI invocations.
type AdviceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAdviceCache creates a Redis-backed advice cache with the given TTL.
func NewAdviceCache(client *Client, ttl time.Duration) *AdviceCache {
	return &AdviceCache{rdb: client.rdb, ttl: ttl}
}

func adviceKey(key string) string {
	return adviceKeyPrefix + key
}

// Get loads a recommendation. Missing or expired keys are a miss.
func (c *AdviceCache) Get(ctx context.Context, key string) (*advisor.Recommendation, bool, error) {
	data, err := c.rdb.Get(ctx, adviceKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}

	var rec advisor.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal recommendation: %w", err)
	}
	return &rec, true, nil
}

// Set stores a recommendation with the cache TTL.
func (c *AdviceCache) Set(ctx context.Context, key string, rec *advisor.Recommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation: %w", err)
	}
	if err := c.rdb.Set(ctx, adviceKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Clear removes every cached recommendation.
func (c *AdviceCache) Clear(ctx context.Context) (int, error) {
	var removed int
	iter := c.rdb.Scan(ctx, 0, adviceKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("del failed: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan failed: %w", err)
	}
	return removed, nil
}
