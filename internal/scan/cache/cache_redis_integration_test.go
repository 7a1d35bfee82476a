//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"exposurescan/internal/evidence"
	"exposurescan/internal/scan/cache"
	"exposurescan/internal/taxonomy"
	"exposurescan/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.NewRedis(s.redis.Client, 5*time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.Client.FlushAll(context.Background()).Err())
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	e := evidence.Evidence{
		IngredientKey: "email_id",
		Source:        taxonomy.SourceBreach,
		Confidence:    0.9,
		Detail:        "breach corpus hit",
		ObservedAt:    time.Now().UTC().Truncate(time.Second),
	}

	s.Require().NoError(s.cache.Put(ctx, "fp-redis", e))

	got, err := s.cache.Get(ctx, "fp-redis", "email_id", taxonomy.SourceBreach)
	s.Require().NoError(err)
	s.Equal(e.Confidence, got.Confidence)
	s.Equal(e.Detail, got.Detail)
	s.True(e.ObservedAt.Equal(got.ObservedAt))
}

func (s *RedisCacheSuite) TestMiss() {
	_, err := s.cache.Get(context.Background(), "fp-redis", "email_id", taxonomy.SourceBreach)
	s.ErrorIs(err, cache.ErrNotFound)
}

func (s *RedisCacheSuite) TestTTLApplied() {
	ctx := context.Background()
	short := cache.NewRedis(s.redis.Client, time.Second)

	e := evidence.Evidence{
		IngredientKey: "email_id",
		Source:        taxonomy.SourceBreach,
		Confidence:    0.9,
	}
	s.Require().NoError(short.Put(ctx, "fp-ttl", e))

	_, err := short.Get(ctx, "fp-ttl", "email_id", taxonomy.SourceBreach)
	s.Require().NoError(err)

	time.Sleep(1500 * time.Millisecond)
	_, err = short.Get(ctx, "fp-ttl", "email_id", taxonomy.SourceBreach)
	s.ErrorIs(err, cache.ErrNotFound)
}
