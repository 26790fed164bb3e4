//go:build integration

package statscache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fundgate/internal/audit"
	"fundgate/internal/platform/config"
	platformredis "fundgate/internal/platform/redis"
	"fundgate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	rc     *containers.RedisContainer
	client *platformredis.Client
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.rc = containers.NewRedisContainer(s.T())

	client, err := platformredis.New(config.RedisConfig{
		URL:          s.rc.Addr,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	s.Require().NoError(err)
	s.client = client
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) newCache(ttl time.Duration) *RedisCache {
	return New(s.client, ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *RedisCacheSuite) TestStatsRoundTrip() {
	ctx := context.Background()
	cache := s.newCache(time.Minute)

	_, ok := cache.GetStats(ctx)
	s.False(ok, "empty cache misses")

	stats := map[audit.Category]int64{
		audit.CategoryFinancial:   7,
		audit.CategoryOperational: 2,
	}
	cache.SetStats(ctx, stats)

	got, ok := cache.GetStats(ctx)
	s.Require().True(ok)
	s.Equal(stats, got)
}

func (s *RedisCacheSuite) TestStatsExpireAfterTTL() {
	ctx := context.Background()
	cache := s.newCache(100 * time.Millisecond)

	cache.SetStats(ctx, map[audit.Category]int64{audit.CategoryFinancial: 1})

	_, ok := cache.GetStats(ctx)
	s.Require().True(ok)

	time.Sleep(250 * time.Millisecond)
	_, ok = cache.GetStats(ctx)
	s.False(ok, "entry older than TTL must not be served")
}

func (s *RedisCacheSuite) TestCorruptEntryReadsAsMiss() {
	ctx := context.Background()
	cache := s.newCache(time.Minute)

	s.Require().NoError(s.client.Set(ctx, statsKey, "not-json", time.Minute).Err())

	_, ok := cache.GetStats(ctx)
	s.False(ok, "corrupt payload is a miss, never an error")
}
