package statscache

import (
	"context"
	"encoding/json"
	"time"

	"fundgate/internal/audit"
	"fundgate/internal/platform/configcache"
)

// LocalCache implements audit.StatsCache on the in-process cache for
// deployments without Redis. Same staleness contract, no extra hop.
type LocalCache struct {
	cache *configcache.Cache
}

func NewLocal(ttl time.Duration) *LocalCache {
	return &LocalCache{cache: configcache.New(ttl)}
}

func (c *LocalCache) GetStats(ctx context.Context) (map[audit.Category]int64, bool) {
	payload, ok := c.cache.Get(statsKey)
	if !ok {
		return nil, false
	}
	var stats map[audit.Category]int64
	if err := json.Unmarshal([]byte(payload), &stats); err != nil {
		return nil, false
	}
	return stats, true
}

func (c *LocalCache) SetStats(ctx context.Context, stats map[audit.Category]int64) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	c.cache.Set(statsKey, string(payload))
}
