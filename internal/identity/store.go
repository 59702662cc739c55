package identity

import (
	"context"
	"time"

	"licensure/pkg/domain"
)

// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory and Postgres persistence without rewiring business code.

type UserStore interface {
	Create(ctx context.Context, user User, passwordHash string) error
	FindByID(ctx context.Context, id domain.UserID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// FindByEmailWithPassword returns the user and its bcrypt hash for
	// credential checks. Email lookup is case-insensitive.
	FindByEmailWithPassword(ctx context.Context, email string) (User, string, error)
}

type PractitionerStore interface {
	Create(ctx context.Context, practitioner Practitioner) error
	FindByID(ctx context.Context, id domain.PractitionerID) (Practitioner, error)
	FindByUserID(ctx context.Context, userID domain.UserID) (Practitioner, error)
	// SearchByName returns practitioners whose user's first or last name
	// contains the given fragment (case-sensitive), ordered by first name.
	// A limit of zero or less returns every match; the directory search caps
	// results after its own filtering.
	SearchByName(ctx context.Context, name string, limit int) ([]PractitionerProfile, error)
}

// PractitionerProfile pairs a practitioner with the public fields of its user.
type PractitionerProfile struct {
	Practitioner Practitioner
	UserEmail    string
	FirstName    string
	LastName     string
}

// SessionStore abstracts the shared session map. Implementations must be safe
// under concurrent requests and enforce the TTL on read (lazy expiry).
type SessionStore interface {
	Save(ctx context.Context, session Session, ttl time.Duration) error
	Find(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
	// FindTokenByUser returns the live token for a user, if any, so logins can
	// reuse an existing session instead of minting a second one.
	FindTokenByUser(ctx context.Context, userID domain.UserID) (string, error)
}
