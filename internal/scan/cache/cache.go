// Package cache memoizes (subject, ingredient, source) evidence for a short
// TTL so repeated or near-simultaneous scans do not hammer the upstream
// sources.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"exposurescan/internal/evidence"
	"exposurescan/internal/taxonomy"
)

// ErrNotFound is returned when a cache entry does not exist or has expired.
var ErrNotFound = errors.New("cache entry not found")

// Store is the scan cache contract. Implementations must support
// concurrent reads and inserts; readers of one key never block on writes
// to another.
type Store interface {
	Get(ctx context.Context, fingerprint, ingredientKey string, src taxonomy.DetectionSource) (*evidence.Evidence, error)
	Put(ctx context.Context, fingerprint string, e evidence.Evidence) error
}

func entryKey(fingerprint, ingredientKey string, src taxonomy.DetectionSource) string {
	return fmt.Sprintf("scan:cache:%s:%s:%s", fingerprint, ingredientKey, src)
}

type memoryEntry struct {
	evidence evidence.Evidence
	storedAt time.Time
}

// InMemory is a TTL cache backed by process memory.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemory creates an in-memory cache with the given TTL.
func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a live entry; expired entries behave as missing.
func (c *InMemory) Get(_ context.Context, fingerprint, ingredientKey string, src taxonomy.DetectionSource) (*evidence.Evidence, error) {
	key := entryKey(fingerprint, ingredientKey, src)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[key]; ok {
		if c.now().Sub(entry.storedAt) < c.ttl {
			copied := entry.evidence
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// Put stores evidence under its (fingerprint, ingredient, source) key.
func (c *InMemory) Put(_ context.Context, fingerprint string, e evidence.Evidence) error {
	key := entryKey(fingerprint, e.IngredientKey, e.Source)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{evidence: e, storedAt: c.now()}
	return nil
}

// Sweep drops expired entries. Callers run it periodically; Get never
// returns expired data regardless.
func (c *InMemory) Sweep() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.storedAt.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
