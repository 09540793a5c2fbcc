// Package content defines the artifact store boundary used for generated
// calendar files: named byte blobs with time-limited retrieval links. The
// in-memory implementation here serves tests; the MinIO-backed one lives in a
// subpackage.
package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when no artifact exists under the given name.
var ErrNotFound = errors.New("artifact not found")

// Store persists named artifacts and issues expiring retrieval links.
type Store interface {
	// Put stores (or overwrites) the artifact bytes under name.
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// TemporaryLink returns a retrieval URL valid for ttl.
	TemporaryLink(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// InMemoryStore is a trivial in-process Store for tests and single-process
// prototypes. Data is copied on save to avoid accidental external mutation.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
	types     map[string]string
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string][]byte), types: make(map[string]string)}
}

// Put stores a copy of the artifact bytes under name.
func (s *InMemoryStore) Put(_ context.Context, name string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.artifacts[name] = cp
	s.types[name] = contentType
	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.artifacts[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// TemporaryLink returns a synthetic URL embedding the requested expiry. The
// artifact must exist.
func (s *InMemoryStore) TemporaryLink(_ context.Context, name string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.artifacts[name]; !ok {
		return "", ErrNotFound
	}
	return fmt.Sprintf("memory://artifacts/%s?expires=%d", name, int(ttl.Seconds())), nil
}
