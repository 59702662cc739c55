package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"licensure/internal/identity"
	"licensure/internal/identity/store"
	"licensure/internal/identity/store/session"
	dErrors "licensure/pkg/domain-errors"
	"licensure/pkg/requestcontext"
)

type IdentityServiceSuite struct {
	suite.Suite

	users    *store.InMemoryUserStore
	sessions *session.InMemorySessionStore
	service  *identity.Service

	now   time.Time
	clock func() time.Time
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return s.now }

	s.users = store.NewInMemoryUserStore()
	practitioners := store.NewInMemoryPractitionerStore(s.users)
	s.sessions = session.New(session.WithClock(func() time.Time { return s.clock() }))
	s.service = identity.NewService(s.users, practitioners, s.sessions,
		identity.WithBcryptCost(bcrypt.MinCost))
}

func (s *IdentityServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *IdentityServiceSuite) createPA(email string) identity.User {
	user, err := s.service.CreateUser(s.ctx(), identity.CreateUserInput{
		Email:     email,
		Password:  "password123",
		FirstName: "Alex",
		LastName:  "Chen",
		Role:      identity.RolePractitioner,
	})
	s.Require().NoError(err)
	return user
}

func (s *IdentityServiceSuite) TestCreateUserRejectsDuplicateEmail() {
	s.createPA("alex@example.com")

	_, err := s.service.CreateUser(s.ctx(), identity.CreateUserInput{
		Email:     "Alex@Example.com",
		Password:  "password123",
		FirstName: "Other",
		LastName:  "Person",
		Role:      identity.RolePractitioner,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IdentityServiceSuite) TestCreateUserCreatesPractitionerForPARole() {
	user := s.createPA("alex@example.com")

	practitioner, err := s.service.PractitionerForUser(s.ctx(), user.ID)
	s.Require().NoError(err)
	s.Equal(user.ID, practitioner.UserID)
}

func (s *IdentityServiceSuite) TestCreateAdminHasNoPractitioner() {
	user, err := s.service.CreateUser(s.ctx(), identity.CreateUserInput{
		Email:     "admin@example.com",
		Password:  "password123",
		FirstName: "Morgan",
		LastName:  "Hale",
		Role:      identity.RoleStateAdmin,
	})
	s.Require().NoError(err)

	_, err = s.service.PractitionerForUser(s.ctx(), user.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal("Practitioner not found for user", dErrors.MessageOf(err))
}

func (s *IdentityServiceSuite) TestLoginIssuesToken() {
	user := s.createPA("alex@example.com")

	token, loggedIn, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)
	s.NotEmpty(token)
	s.Equal(user.ID, loggedIn.ID)

	resolved, err := s.service.Authenticate(s.ctx(), token)
	s.Require().NoError(err)
	s.Equal(user.ID, resolved.ID)
}

func (s *IdentityServiceSuite) TestLoginNormalizesEmail() {
	s.createPA("alex@example.com")

	_, _, err := s.service.Login(s.ctx(), "  ALEX@example.COM ", "password123")
	s.NoError(err)
}

func (s *IdentityServiceSuite) TestLoginFailuresAreIndistinguishable() {
	s.createPA("alex@example.com")

	_, _, badPassword := s.service.Login(s.ctx(), "alex@example.com", "wrong")
	_, _, badEmail := s.service.Login(s.ctx(), "nobody@example.com", "password123")

	s.True(dErrors.HasCode(badPassword, dErrors.CodeUnauthenticated))
	s.True(dErrors.HasCode(badEmail, dErrors.CodeUnauthenticated))
	s.Equal(dErrors.MessageOf(badPassword), dErrors.MessageOf(badEmail))
}

func (s *IdentityServiceSuite) TestLoginReusesLiveSession() {
	s.createPA("alex@example.com")

	first, _, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)
	second, _, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)

	s.Equal(first, second)
}

func (s *IdentityServiceSuite) TestLoginMintsNewTokenAfterExpiry() {
	s.createPA("alex@example.com")

	first, _, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)

	s.now = s.now.Add(16 * time.Minute)
	second, _, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)

	s.NotEqual(first, second)
}

func (s *IdentityServiceSuite) TestAuthenticateRejectsExpiredSession() {
	s.createPA("alex@example.com")

	token, _, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)

	s.now = s.now.Add(15 * time.Minute)
	_, err = s.service.Authenticate(s.ctx(), token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	s.Equal("Unauthorized", dErrors.MessageOf(err))
}

func (s *IdentityServiceSuite) TestSessionTTLRefreshesOnReuse() {
	s.createPA("alex@example.com")

	token, _, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)

	s.now = s.now.Add(10 * time.Minute)
	_, _, err = s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)

	s.now = s.now.Add(10 * time.Minute)
	_, err = s.service.Authenticate(s.ctx(), token)
	s.NoError(err)
}

func (s *IdentityServiceSuite) TestLogout() {
	s.createPA("alex@example.com")

	token, _, err := s.service.Login(s.ctx(), "alex@example.com", "password123")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Logout(s.ctx(), token))
	_, err = s.service.Authenticate(s.ctx(), token)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthenticated))

	// Logging out twice is fine.
	s.NoError(s.service.Logout(s.ctx(), token))
	s.NoError(s.service.Logout(s.ctx(), ""))
}
