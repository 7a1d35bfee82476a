package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"exposurescan/internal/evidence"
	"exposurescan/internal/taxonomy"
)

// Redis is a scan cache shared across instances. Expiry is delegated to
// Redis TTLs, so entries vanish on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed scan cache.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Get retrieves evidence for a (fingerprint, ingredient, source) key.
func (c *Redis) Get(ctx context.Context, fingerprint, ingredientKey string, src taxonomy.DetectionSource) (*evidence.Evidence, error) {
	raw, err := c.client.Get(ctx, entryKey(fingerprint, ingredientKey, src)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var e evidence.Evidence
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &e, nil
}

// Put stores evidence with the configured TTL.
func (c *Redis) Put(ctx context.Context, fingerprint string, e evidence.Evidence) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	key := entryKey(fingerprint, e.IngredientKey, e.Source)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}
