package memberstate

import (
	"context"
	"sort"
	"strings"
	"sync"

	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	states map[domain.MemberStateID]MemberState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[domain.MemberStateID]MemberState)}
}

func (s *InMemoryStore) Create(_ context.Context, state MemberState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.states {
		if strings.EqualFold(existing.Code, state.Code) {
			return sentinel.ErrConflict
		}
	}
	s.states[state.ID] = state
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.MemberStateID) (MemberState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[id]; ok {
		return state, nil
	}
	return MemberState{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (MemberState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, state := range s.states {
		if strings.EqualFold(state.Code, code) {
			return state, nil
		}
	}
	return MemberState{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, includeInactive bool) ([]MemberState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MemberState, 0, len(s.states))
	for _, state := range s.states {
		if !includeInactive && !state.IsActive {
			continue
		}
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
