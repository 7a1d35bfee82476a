package report

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore keeps reports in process memory. It favors clarity over
// performance and backs tests and local development.
type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]*ExposureReport
	bySubject map[string][]string
}

// NewInMemoryStore creates an empty in-memory report store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[string]*ExposureReport),
		bySubject: make(map[string][]string),
	}
}

// Save appends a report. Saving the same report ID twice is an error; the
// history is append-only.
func (s *InMemoryStore) Save(_ context.Context, r *ExposureReport) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("save report: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; exists {
		return fmt.Errorf("save report %s: already stored", r.ID)
	}
	copied := *r
	s.byID[r.ID] = &copied
	s.bySubject[r.SubjectFingerprint] = append(s.bySubject[r.SubjectFingerprint], r.ID)
	return nil
}

// Find retrieves a report by ID.
func (s *InMemoryStore) Find(_ context.Context, id string) (*ExposureReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.byID[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, ErrNotFound
}

// ListBySubject returns a subject's reports in insertion order.
func (s *InMemoryStore) ListBySubject(_ context.Context, fingerprint string) ([]*ExposureReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.bySubject[fingerprint]
	out := make([]*ExposureReport, 0, len(ids))
	for _, id := range ids {
		copied := *s.byID[id]
		out = append(out, &copied)
	}
	return out, nil
}
