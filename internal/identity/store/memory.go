package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"licensure/internal/identity"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
)

// In-memory stores keep development and tests lightweight. They intentionally
// favor clarity over performance.

type userRecord struct {
	user         identity.User
	passwordHash string
}

type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[domain.UserID]userRecord
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[domain.UserID]userRecord)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user identity.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, user.Email) {
			return sentinel.ErrConflict
		}
	}
	s.users[user.ID] = userRecord{user: user, passwordHash: passwordHash}
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id domain.UserID) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.users[id]; ok {
		return rec.user, nil
	}
	return identity.User{}, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, email) {
			return rec.user, nil
		}
	}
	return identity.User{}, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByEmailWithPassword(_ context.Context, email string) (identity.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		if strings.EqualFold(rec.user.Email, email) {
			return rec.user, rec.passwordHash, nil
		}
	}
	return identity.User{}, "", sentinel.ErrNotFound
}

// InMemoryPractitionerStore resolves names through the user store so search
// semantics match the Postgres join.
type InMemoryPractitionerStore struct {
	mu            sync.RWMutex
	practitioners map[domain.PractitionerID]identity.Practitioner
	users         *InMemoryUserStore
}

func NewInMemoryPractitionerStore(users *InMemoryUserStore) *InMemoryPractitionerStore {
	return &InMemoryPractitionerStore{
		practitioners: make(map[domain.PractitionerID]identity.Practitioner),
		users:         users,
	}
}

func (s *InMemoryPractitionerStore) Create(_ context.Context, practitioner identity.Practitioner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.practitioners[practitioner.ID] = practitioner
	return nil
}

func (s *InMemoryPractitionerStore) FindByID(_ context.Context, id domain.PractitionerID) (identity.Practitioner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.practitioners[id]; ok {
		return p, nil
	}
	return identity.Practitioner{}, sentinel.ErrNotFound
}

func (s *InMemoryPractitionerStore) FindByUserID(_ context.Context, userID domain.UserID) (identity.Practitioner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.practitioners {
		if p.UserID == userID {
			return p, nil
		}
	}
	return identity.Practitioner{}, sentinel.ErrNotFound
}

func (s *InMemoryPractitionerStore) SearchByName(ctx context.Context, name string, limit int) ([]identity.PractitionerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]identity.PractitionerProfile, 0)
	for _, p := range s.practitioners {
		user, err := s.users.FindByID(ctx, p.UserID)
		if err != nil {
			continue
		}
		if !strings.Contains(user.FirstName, name) && !strings.Contains(user.LastName, name) {
			continue
		}
		profiles = append(profiles, identity.PractitionerProfile{
			Practitioner: p,
			UserEmail:    user.Email,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
		})
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].FirstName < profiles[j].FirstName
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}
