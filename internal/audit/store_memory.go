package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type streamKey struct {
	stream   Stream
	entityID uuid.UUID
}

// InMemoryStore keeps history rows in append order per entity.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[streamKey][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[streamKey][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := streamKey{stream: entry.Stream, entityID: entry.EntityID}
	s.entries[key] = append(s.entries[key], entry)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, stream Stream, entityID uuid.UUID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.entries[streamKey{stream: stream, entityID: entityID}]
	// Reverse copy: creation order is oldest first, callers read newest first.
	out := make([]Entry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}
