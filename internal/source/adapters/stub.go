// Package adapters provides deterministic in-process adapters used by the
// development wiring and by tests. Real network adapters live outside this
// repository and plug in through the same source.Adapter contract.
package adapters

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync/atomic"
	"time"

	"exposurescan/internal/source"
	"exposurescan/internal/taxonomy"
)

// Stub is a scripted adapter. Findings are keyed by ingredient key; a
// missing key yields a clean (zero findings) result. Err, when set, fails
// every query. Latency mimics a real network call.
type Stub struct {
	Src      taxonomy.DetectionSource
	Latency  time.Duration
	Findings map[string][]source.Finding
	Err      error

	calls atomic.Int64
}

func (s *Stub) Source() taxonomy.DetectionSource { return s.Src }

// Calls returns how many times Query has been invoked.
func (s *Stub) Calls() int64 { return s.calls.Load() }

func (s *Stub) Query(ctx context.Context, _ source.Subject, ing taxonomy.Ingredient) ([]source.Finding, error) {
	s.calls.Add(1)
	if s.Latency > 0 {
		select {
		case <-time.After(s.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Findings[ing.Key], nil
}

// Deterministic simulates a live source: whether an ingredient "matches" is
// derived from a hash of the subject and ingredient, so repeated scans of
// the same subject agree with each other while different subjects differ.
type Deterministic struct {
	Src     taxonomy.DetectionSource
	Latency time.Duration
}

func (d *Deterministic) Source() taxonomy.DetectionSource { return d.Src }

func (d *Deterministic) Query(ctx context.Context, subject source.Subject, ing taxonomy.Ingredient) ([]source.Finding, error) {
	if d.Latency > 0 {
		select {
		case <-time.After(d.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	h := sha256.New()
	for _, id := range subject.Normalized() {
		h.Write([]byte(id))
	}
	h.Write([]byte(ing.Key))
	h.Write([]byte(d.Src))
	digest := h.Sum(nil)

	// Roughly one in three pairs matches.
	if digest[0]%3 != 0 {
		return nil, nil
	}
	confidence := 0.5 + float64(digest[1])/512.0
	return []source.Finding{{
		Confidence: confidence,
		Detail:     fmt.Sprintf("simulated %s hit for %s (ref %x)", d.Src, ing.Key, digest[:4]),
		ObservedAt: time.Now().UTC(),
	}}, nil
}

// DefaultSet returns one deterministic adapter per detection source, for
// local development.
func DefaultSet(latency time.Duration) []*Deterministic {
	out := make([]*Deterministic, 0, len(taxonomy.AllSources))
	for _, src := range taxonomy.AllSources {
		out = append(out, &Deterministic{Src: src, Latency: latency})
	}
	return out
}
