package inmemory

import (
	"context"
	"strings"
	"sync"

	"github.com/supportkit/kbase/pkg/record"
)

// InMemory implements Store using a map. Intended for tests and small
// single-process deployments.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]record.Record
}

// New creates a new InMemory store.
func New() *InMemory {
	return &InMemory{
		records: make(map[string]record.Record),
	}
}

// Get retrieves a record by id; absent ids return (nil, nil).
func (s *InMemory) Get(ctx context.Context, id string) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	// Return a copy to avoid race conditions if the caller modifies the record
	out := rec
	return &out, nil
}

// Upsert inserts or replaces a record by its ID.
func (s *InMemory) Upsert(ctx context.Context, rec *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = *rec
	return nil
}

// Delete removes a record by id.
func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

// QueryByKind returns all records of the given kind.
func (s *InMemory) QueryByKind(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*record.Record
	for _, rec := range s.records {
		if rec.Kind == kind {
			cp := rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Count returns the total number of stored records.
func (s *InMemory) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.records)), nil
}

// SearchText returns records whose title, description or summary contains term.
func (s *InMemory) SearchText(ctx context.Context, term string, kind record.Kind) ([]*record.Record, error) {
	term = strings.ToLower(term)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*record.Record
	for _, rec := range s.records {
		if kind != "" && rec.Kind != kind {
			continue
		}
		if strings.Contains(strings.ToLower(rec.Title), term) ||
			strings.Contains(strings.ToLower(rec.Description), term) ||
			strings.Contains(strings.ToLower(rec.Summary), term) {
			cp := rec
			out = append(out, &cp)
		}
	}
	return out, nil
}
