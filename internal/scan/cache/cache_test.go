package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"exposurescan/internal/evidence"
	"exposurescan/internal/taxonomy"
)

type InMemoryCacheSuite struct {
	suite.Suite
	cache *InMemory
	ctx   context.Context
	clock time.Time
}

func TestInMemoryCacheSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCacheSuite))
}

func (s *InMemoryCacheSuite) SetupTest() {
	s.cache = NewInMemory(5 * time.Minute)
	s.clock = time.Unix(1700000000, 0)
	s.cache.now = func() time.Time { return s.clock }
	s.ctx = context.Background()
}

func (s *InMemoryCacheSuite) evidence(ingredientKey string, src taxonomy.DetectionSource) evidence.Evidence {
	return evidence.Evidence{
		IngredientKey: ingredientKey,
		Source:        src,
		Confidence:    0.8,
		Detail:        "cached hit",
		ObservedAt:    s.clock,
	}
}

func (s *InMemoryCacheSuite) TestRoundTrip() {
	e := s.evidence("email_id", taxonomy.SourceBreach)
	s.Require().NoError(s.cache.Put(s.ctx, "fp-1", e))

	got, err := s.cache.Get(s.ctx, "fp-1", "email_id", taxonomy.SourceBreach)
	s.Require().NoError(err)
	s.Equal(e, *got)
}

func (s *InMemoryCacheSuite) TestMiss() {
	_, err := s.cache.Get(s.ctx, "fp-1", "email_id", taxonomy.SourceBreach)
	s.ErrorIs(err, ErrNotFound)
}

func (s *InMemoryCacheSuite) TestKeysAreIndependent() {
	s.Require().NoError(s.cache.Put(s.ctx, "fp-1", s.evidence("email_id", taxonomy.SourceBreach)))

	_, err := s.cache.Get(s.ctx, "fp-1", "email_id", taxonomy.SourceWebSearch)
	s.ErrorIs(err, ErrNotFound, "different source is a different key")

	_, err = s.cache.Get(s.ctx, "fp-2", "email_id", taxonomy.SourceBreach)
	s.ErrorIs(err, ErrNotFound, "different fingerprint is a different key")
}

func (s *InMemoryCacheSuite) TestExpiry() {
	s.Require().NoError(s.cache.Put(s.ctx, "fp-1", s.evidence("email_id", taxonomy.SourceBreach)))

	s.clock = s.clock.Add(4 * time.Minute)
	_, err := s.cache.Get(s.ctx, "fp-1", "email_id", taxonomy.SourceBreach)
	s.NoError(err, "entry still live inside the TTL")

	s.clock = s.clock.Add(2 * time.Minute)
	_, err = s.cache.Get(s.ctx, "fp-1", "email_id", taxonomy.SourceBreach)
	s.ErrorIs(err, ErrNotFound, "entry expired past the TTL")
}

func (s *InMemoryCacheSuite) TestSweep() {
	s.Require().NoError(s.cache.Put(s.ctx, "fp-1", s.evidence("email_id", taxonomy.SourceBreach)))
	s.clock = s.clock.Add(10 * time.Minute)
	s.Require().NoError(s.cache.Put(s.ctx, "fp-1", s.evidence("phone_number", taxonomy.SourceDarkWeb)))

	s.cache.Sweep()

	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	s.Len(s.cache.entries, 1)
}

func (s *InMemoryCacheSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e := s.evidence("email_id", taxonomy.SourceBreach)
				_ = s.cache.Put(s.ctx, "fp-shared", e)
				_, _ = s.cache.Get(s.ctx, "fp-shared", "email_id", taxonomy.SourceBreach)
			}
		}()
	}
	wg.Wait()

	got, err := s.cache.Get(s.ctx, "fp-shared", "email_id", taxonomy.SourceBreach)
	s.Require().NoError(err)
	s.Equal(0.8, got.Confidence)
}
