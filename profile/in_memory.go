package profile

import (
	"context"
	"sync"
)

// InMemoryStore is a volatile Store implementation keeping records in a
// process-local map. Safe for concurrent access; records are copied on
// retrieval.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore constructs an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

// Get returns the record for key or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Upsert merges fields into the existing record or inserts a new one.
func (s *InMemoryStore) Upsert(_ context.Context, key string, fields map[string]string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.records[key]
	if !exists {
		r = Record{}
	}
	r.Apply(fields)
	s.records[key] = r
	return r, nil
}
