package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	domainid "licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
	"licensure/pkg/platform/sentinel"
	"licensure/pkg/requestcontext"
)

// Service owns login, session resolution, and the user/practitioner
// directory. Token issuance stays opaque: a session token is a random UUID
// whose lifetime lives entirely in the session store.
type Service struct {
	users         UserStore
	practitioners PractitionerStore
	sessions      SessionStore
	sessionTTL    time.Duration
	bcryptCost    int
	logger        *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost {
			s.bcryptCost = cost
		}
	}
}

func NewService(users UserStore, practitioners PractitionerStore, sessions SessionStore, opts ...Option) *Service {
	s := &Service{
		users:         users,
		practitioners: practitioners,
		sessions:      sessions,
		sessionTTL:    15 * time.Minute,
		bcryptCost:    bcrypt.DefaultCost,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL exposes the configured session lifetime for cookie max-age.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Login verifies credentials and returns a session token. A live session for
// the same user is reused with a refreshed TTL rather than minting a second
// token. All credential failures collapse to one unauthenticated error.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	invalid := dErrors.New(dErrors.CodeUnauthenticated, "Invalid credentials")

	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", User{}, invalid
	}

	user, passwordHash, err := s.users.FindByEmailWithPassword(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", User{}, invalid
		}
		return "", User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return "", User{}, invalid
	}

	if token, err := s.sessions.FindTokenByUser(ctx, user.ID); err == nil {
		if existing, err := s.sessions.Find(ctx, token); err == nil {
			existing.CreatedAt = requestcontext.Now(ctx)
			if err := s.sessions.Save(ctx, existing, s.sessionTTL); err != nil {
				return "", User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh session")
			}
			return token, existing.User, nil
		}
	}

	session := Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.sessions.Save(ctx, session, s.sessionTTL); err != nil {
		return "", User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	return session.Token, user, nil
}

// Authenticate resolves a session token to its user. Missing and expired
// sessions are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, dErrors.New(dErrors.CodeUnauthenticated, "Unauthorized")
	}
	session, err := s.sessions.Find(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return User{}, dErrors.New(dErrors.CodeUnauthenticated, "Unauthorized")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve session")
	}
	return session.User, nil
}

// Logout deletes the session. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	return nil
}

// CreateUserInput carries everything needed to register an account.
type CreateUserInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          Role
	MemberStateID *domainid.MemberStateID
}

// CreateUser registers an account, hashing the password with bcrypt. PA users
// additionally get a practitioner record.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	password := strings.TrimSpace(input.Password)
	if password == "" {
		return User{}, dErrors.New(dErrors.CodeValidation, "Password is required")
	}
	if !input.Role.Valid() {
		return User{}, dErrors.Newf(dErrors.CodeValidation, "unknown role %q", input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user := User{
		ID:            domainid.NewUserID(),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Role:          input.Role,
		MemberStateID: input.MemberStateID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user, string(hash)); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return User{}, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if input.Role == RolePractitioner {
		practitioner := Practitioner{
			ID:        domainid.NewPractitionerID(),
			UserID:    user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.practitioners.Create(ctx, practitioner); err != nil {
			return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create practitioner")
		}
	}

	return user, nil
}

// PractitionerForUser resolves the practitioner aggregate behind a PA user.
// A PA account without a practitioner record is a data problem surfaced as a
// validation failure, matching the transport contract.
func (s *Service) PractitionerForUser(ctx context.Context, userID domainid.UserID) (Practitioner, error) {
	practitioner, err := s.practitioners.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Practitioner{}, dErrors.New(dErrors.CodeValidation, "Practitioner not found for user")
		}
		return Practitioner{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load practitioner")
	}
	return practitioner, nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id domainid.UserID) (User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}
