// Package statscache caches audit dashboard aggregates in Redis. The cached
// numbers are informational; staleness up to the TTL is acceptable and the
// cache never sits on a gating path.
package statscache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"fundgate/internal/audit"
	platformredis "fundgate/internal/platform/redis"
)

const statsKey = "fundgate:audit:stats_by_category"

// RedisCache implements audit.StatsCache on Redis.
type RedisCache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) GetStats(ctx context.Context) (map[audit.Category]int64, bool) {
	payload, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var stats map[audit.Category]int64
	if err := json.Unmarshal(payload, &stats); err != nil {
		c.logger.WarnContext(ctx, "corrupt audit stats cache entry", "error", err)
		return nil, false
	}
	return stats, true
}

func (c *RedisCache) SetStats(ctx context.Context, stats map[audit.Category]int64) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey, payload, c.ttl).Err(); err != nil {
		// Cache write failures are not worth surfacing to the caller.
		c.logger.WarnContext(ctx, "audit stats cache write failed", "error", err)
	}
}
