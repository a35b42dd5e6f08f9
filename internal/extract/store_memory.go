package extract

import (
	"context"
	"sync"
)

// MemoryStore serves a fixed snapshot. Used in tests and in dev mode when no
// warehouse DSN is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewMemory constructs a store serving the given snapshot.
func NewMemory(snap Snapshot) *MemoryStore {
	return &MemoryStore{snap: snap}
}

// Snapshot returns a shallow copy; record slices are treated as immutable by
// all consumers.
func (s *MemoryStore) Snapshot(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	return &snap, nil
}

// Replace swaps the served snapshot. Concurrent report runs keep whichever
// snapshot they already received.
func (s *MemoryStore) Replace(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}
