package session

import (
	"context"
	"sync"
	"time"

	"licensure/internal/identity"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
)

type entry struct {
	session   identity.Session
	expiresAt time.Time
}

// InMemorySessionStore keeps sessions in process memory behind a mutex.
// Expiry is lazy: an expired entry is removed on the read that observes it.
type InMemorySessionStore struct {
	mu          sync.Mutex
	byToken     map[string]entry
	tokenByUser map[domain.UserID]string
	clock       func() time.Time
}

type Option func(*InMemorySessionStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemorySessionStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(opts ...Option) *InMemorySessionStore {
	s := &InMemorySessionStore{
		byToken:     make(map[string]entry),
		tokenByUser: make(map[domain.UserID]string),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemorySessionStore) Save(_ context.Context, session identity.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[session.Token] = entry{session: session, expiresAt: s.clock().Add(ttl)}
	s.tokenByUser[session.User.ID] = session.Token
	return nil
}

func (s *InMemorySessionStore) Find(_ context.Context, token string) (identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byToken[token]
	if !ok {
		return identity.Session{}, sentinel.ErrNotFound
	}
	if !s.clock().Before(e.expiresAt) {
		s.evict(token, e.session.User.ID)
		return identity.Session{}, sentinel.ErrExpired
	}
	return e.session, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byToken[token]; ok {
		s.evict(token, e.session.User.ID)
	}
	return nil
}

func (s *InMemorySessionStore) FindTokenByUser(_ context.Context, userID domain.UserID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokenByUser[userID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	e, ok := s.byToken[token]
	if !ok {
		delete(s.tokenByUser, userID)
		return "", sentinel.ErrNotFound
	}
	if !s.clock().Before(e.expiresAt) {
		s.evict(token, userID)
		return "", sentinel.ErrExpired
	}
	return token, nil
}

// evict must be called with the lock held.
func (s *InMemorySessionStore) evict(token string, userID domain.UserID) {
	delete(s.byToken, token)
	if s.tokenByUser[userID] == token {
		delete(s.tokenByUser, userID)
	}
}
