// Package idempotency provides result stores backing the idempotency
// pipeline behavior.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

type memoryEntry struct {
	result    application.Result
	expiresAt time.Time
}

// MemoryStore keeps cached results in process memory. Suitable for tests and
// single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates a store with the given entry TTL. A non-positive
// TTL keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Get returns the cached result for key, if any.
func (s *MemoryStore) Get(_ context.Context, key string) (application.Result, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return application.Result{}, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return application.Result{}, false, nil
	}
	return entry.result, true, nil
}

// Set caches the result for key.
func (s *MemoryStore) Set(_ context.Context, key string, result application.Result) error {
	entry := memoryEntry{result: result}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Len returns the number of cached entries, counting expired ones not yet
// evicted.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
