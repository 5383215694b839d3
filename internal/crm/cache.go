package crm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

// StatsCache holds the last computed stats of each org.
type StatsCache interface {
	Get(ctx context.Context, orgID string) (*Stats, bool, error)
	Set(ctx context.Context, orgID string, stats Stats) error
	Invalidate(ctx context.Context, orgID string) error
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StatsKey(orgID string) string
}

type redisStatsCache struct {
	store cacheStore
	ttl   time.Duration
}

// NewRedisStatsCache stores stats as JSON under the org's stats key.
func NewRedisStatsCache(store cacheStore, ttl time.Duration) StatsCache {
	return &redisStatsCache{store: store, ttl: ttl}
}

func (c *redisStatsCache) Get(ctx context.Context, orgID string) (*Stats, bool, error) {
	raw, err := c.store.Get(ctx, c.store.StatsKey(orgID))
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var stats Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		// a corrupt entry is a miss; the next computation overwrites it
		return nil, false, nil
	}
	stats.SegmentBreakdown = completeBreakdown(stats.SegmentBreakdown)
	return &stats, true, nil
}

func (c *redisStatsCache) Set(ctx context.Context, orgID string, stats Stats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.StatsKey(orgID), payload, c.ttl)
}

func (c *redisStatsCache) Invalidate(ctx context.Context, orgID string) error {
	return c.store.Del(ctx, c.store.StatsKey(orgID))
}

func completeBreakdown(in map[enums.CustomerSegment]int) map[enums.CustomerSegment]int {
	out := EmptyBreakdown()
	for k, v := range in {
		if _, ok := out[k]; ok {
			out[k] = v
		}
	}
	return out
}
