// Package source defines the contract every intelligence source adapter
// must satisfy. Concrete adapters wrap external services (breach databases,
// web search inference, dark-web indexes, social profile search); the engine
// consumes only this interface.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"exposurescan/internal/taxonomy"
)

// Subject is the scan target: one or more identifiers supplied by an
// already-authorized caller. The engine never persists raw identifiers.
type Subject struct {
	Identifiers []string
}

// Normalized returns the subject's identifiers trimmed, lower-cased,
// de-duplicated, and sorted. Fingerprinting and adapter queries both work
// off this canonical form so equivalent subjects behave identically.
func (s Subject) Normalized() []string {
	seen := make(map[string]struct{}, len(s.Identifiers))
	out := make([]string, 0, len(s.Identifiers))
	for _, id := range s.Identifiers {
		norm := strings.ToLower(strings.TrimSpace(id))
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the subject has no usable identifiers.
func (s Subject) Empty() bool { return len(s.Normalized()) == 0 }

// Finding is one raw hit returned by an adapter, before normalization.
// Detail is an opaque display payload (matched URL, profile, breach name).
type Finding struct {
	Confidence float64
	Detail     string
	ObservedAt time.Time
}

// Adapter is the uniform contract for one detection source. A Query either
// succeeds with zero or more findings (zero findings means a confirmed
// clean result, distinct from failure) or fails with an *AdapterError.
type Adapter interface {
	Source() taxonomy.DetectionSource
	Query(ctx context.Context, subject Subject, ingredient taxonomy.Ingredient) ([]Finding, error)
}

// Registry holds one adapter per detection source.
type Registry struct {
	adapters map[taxonomy.DetectionSource]Adapter
}

// NewRegistry returns an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[taxonomy.DetectionSource]Adapter)}
}

// Register adds an adapter. Registering the same source twice is a wiring
// mistake and returns an error.
func (r *Registry) Register(a Adapter) error {
	src := a.Source()
	if !src.Valid() {
		return fmt.Errorf("register adapter: invalid source %q", src)
	}
	if _, exists := r.adapters[src]; exists {
		return fmt.Errorf("register adapter: source %q already registered", src)
	}
	r.adapters[src] = a
	return nil
}

// For returns the adapter registered for a source.
func (r *Registry) For(src taxonomy.DetectionSource) (Adapter, bool) {
	a, ok := r.adapters[src]
	return a, ok
}

// Sources returns the registered sources in enumeration order.
func (r *Registry) Sources() []taxonomy.DetectionSource {
	out := make([]taxonomy.DetectionSource, 0, len(r.adapters))
	for _, src := range taxonomy.AllSources {
		if _, ok := r.adapters[src]; ok {
			out = append(out, src)
		}
	}
	return out
}
