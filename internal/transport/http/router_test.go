package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"licensure/internal/audit"
	"licensure/internal/identity"
	identitystore "licensure/internal/identity/store"
	"licensure/internal/identity/store/session"
	"licensure/internal/license"
	licensestore "licensure/internal/license/store"
	"licensure/internal/memberstate"
	"licensure/internal/privilege"
	privilegestore "licensure/internal/privilege/store"
	transport "licensure/internal/transport/http"
	"licensure/pkg/domain"
	"licensure/pkg/platform/tx"
)

type RouterSuite struct {
	suite.Suite

	handler  http.Handler
	identity *identity.Service
	states   *memberstate.InMemoryStore

	maID string
	akID string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	users := identitystore.NewInMemoryUserStore()
	practitioners := identitystore.NewInMemoryPractitionerStore(users)
	sessions := session.New()
	licenses := licensestore.NewInMemoryLicenseStore()
	designations := licensestore.NewInMemoryDesignationStore()
	applications := privilegestore.NewInMemoryApplicationStore()
	payments := privilegestore.NewInMemoryPaymentStore()
	privileges := privilegestore.NewInMemoryPrivilegeStore()
	s.states = memberstate.NewInMemoryStore()
	trail := audit.NewTrail(audit.NewInMemoryStore())
	runner := tx.NewShardedRunner()

	s.identity = identity.NewService(users, practitioners, sessions,
		identity.WithBcryptCost(bcrypt.MinCost))
	licenseService := license.NewService(licenses, designations, practitioners, trail, runner)
	privilegeService := privilege.NewService(privilege.Deps{
		Applications:  applications,
		Attestations:  privilegestore.NewInMemoryAttestationStore(),
		Payments:      payments,
		Privileges:    privileges,
		Practitioners: practitioners,
		Designations:  designations,
		Licenses:      licenses,
		States:        s.states,
		Trail:         trail,
		TxRunner:      runner,
	})

	s.handler = transport.NewRouter(transport.Deps{
		Identity:   s.identity,
		Licenses:   licenseService,
		Privileges: privilegeService,
		States:     s.states,
	})

	now := time.Now().UTC()
	ma := memberstate.MemberState{
		ID: domain.NewMemberStateID(), Code: "MA", Name: "Massachusetts", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	ak := memberstate.MemberState{
		ID: domain.NewMemberStateID(), Code: "AK", Name: "Alaska", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	s.Require().NoError(s.states.Create(context.Background(), ma))
	s.Require().NoError(s.states.Create(context.Background(), ak))
	s.maID = ma.ID.String()
	s.akID = ak.ID.String()

	s.createUser("alex@example.com", "Alex", "Chen", identity.RolePractitioner, nil)
	s.createUser("ma.admin@example.com", "Morgan", "Hale", identity.RoleStateAdmin, &ma.ID)
	s.createUser("ak.admin@example.com", "Avery", "Stone", identity.RoleStateAdmin, &ak.ID)
}

func (s *RouterSuite) createUser(email, first, last string, role identity.Role, stateID *domain.MemberStateID) {
	_, err := s.identity.CreateUser(context.Background(), identity.CreateUserInput{
		Email:         email,
		Password:      "password123",
		FirstName:     first,
		LastName:      last,
		Role:          role,
		MemberStateID: stateID,
	})
	s.Require().NoError(err)
}

func (s *RouterSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) login(email string) string {
	rec := s.do(http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp.Token)
	return resp.Token
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst))
}

func (s *RouterSuite) TestLoginRejectsBadCredentials() {
	rec := s.do(http.MethodPost, "/login", "", map[string]string{
		"email":    "alex@example.com",
		"password": "wrong",
	})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.JSONEq(`{"error":"Invalid credentials"}`, rec.Body.String())
}

func (s *RouterSuite) TestMeReturnsCurrentUser() {
	token := s.login("alex@example.com")

	rec := s.do(http.MethodGet, "/users/me", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var user map[string]any
	s.decode(rec, &user)
	s.Equal("alex@example.com", user["email"])
	s.Equal("PA", user["role"])
}

func (s *RouterSuite) TestProtectedRoutesRequireSession() {
	for _, path := range []string{"/licenses", "/privileges", "/users/me", "/states"} {
		rec := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code, path)
	}
}

func (s *RouterSuite) TestPublicRoutes() {
	health := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, health.Code)

	search := s.do(http.MethodGet, "/privileges/search?name=Alex", "", nil)
	s.Equal(http.StatusOK, search.Code)
	s.JSONEq(`[]`, search.Body.String())
}

func (s *RouterSuite) TestCookieSessionAccepted() {
	token := s.login("alex@example.com")

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "sessionToken", Value: token})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestLogoutInvalidatesSession() {
	token := s.login("alex@example.com")

	rec := s.do(http.MethodPost, "/logout", token, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/users/me", token, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestDesignateUnverifiedLicenseRejected() {
	paToken := s.login("alex@example.com")

	var lic map[string]any
	created := s.do(http.MethodPost, "/licenses", paToken, map[string]any{
		"issuingStateId":     s.maID,
		"licenseNumber":      "MA-77",
		"issueDate":          "2024-01-01",
		"expirationDate":     "2027-01-01",
		"selfReportedStatus": "ACTIVE",
	})
	s.Require().Equal(http.StatusCreated, created.Code, created.Body.String())
	s.decode(created, &lic)

	rec := s.do(http.MethodPost, "/licenses/designate", paToken, map[string]string{
		"licenseId": lic["id"].(string),
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"License must be verified before designation"}`, rec.Body.String())
}

func (s *RouterSuite) TestMalformedIDsRejected() {
	paToken := s.login("alex@example.com")

	rec := s.do(http.MethodPost, "/licenses/verify", paToken, map[string]string{
		"licenseId": "",
		"status":    "VERIFIED",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"license id is required"}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/privileges/pay", paToken, map[string]any{
		"applicationId": "not-a-uuid",
		"amount":        100,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"application id is not a valid UUID"}`, rec.Body.String())
}

func (s *RouterSuite) TestInvalidDateRejected() {
	paToken := s.login("alex@example.com")

	rec := s.do(http.MethodPost, "/licenses", paToken, map[string]any{
		"issuingStateId":     s.maID,
		"licenseNumber":      "MA-77",
		"issueDate":          "not-a-date",
		"expirationDate":     "2027-01-01",
		"selfReportedStatus": "ACTIVE",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"Invalid date for issueDate"}`, rec.Body.String())
}

// TestCompactScenario walks the full lifecycle: a Massachusetts practitioner
// registers and designates a license, then obtains a privilege in Alaska.
func (s *RouterSuite) TestCompactScenario() {
	paToken := s.login("alex@example.com")
	maToken := s.login("ma.admin@example.com")
	akToken := s.login("ak.admin@example.com")

	// PA registers an MA license.
	created := s.do(http.MethodPost, "/licenses", paToken, map[string]any{
		"issuingStateId":     s.maID,
		"licenseNumber":      "MA-12345",
		"issueDate":          "2024-01-01",
		"expirationDate":     "2030-01-01",
		"selfReportedStatus": "ACTIVE",
	})
	s.Require().Equal(http.StatusCreated, created.Code, created.Body.String())
	var lic map[string]any
	s.decode(created, &lic)
	licenseID := lic["id"].(string)
	practitionerID := lic["practitionerId"].(string)
	s.Equal("UNVERIFIED", lic["verificationStatus"])

	// MA admin sees it in the review queue and verifies it.
	queue := s.do(http.MethodGet, "/licenses", maToken, nil)
	s.Require().Equal(http.StatusOK, queue.Code)
	var queued []map[string]any
	s.decode(queue, &queued)
	s.Require().Len(queued, 1)
	s.Equal(licenseID, queued[0]["id"])

	verified := s.do(http.MethodPost, "/licenses/verify", maToken, map[string]string{
		"licenseId": licenseID,
		"status":    "VERIFIED",
		"note":      "Confirmed with registry",
	})
	s.Require().Equal(http.StatusOK, verified.Code, verified.Body.String())

	// AK admin cannot verify an MA license.
	crossState := s.do(http.MethodPost, "/licenses/verify", akToken, map[string]string{
		"licenseId": licenseID,
		"status":    "VERIFIED",
	})
	s.Equal(http.StatusForbidden, crossState.Code)

	// PA designates the verified license.
	designated := s.do(http.MethodPost, "/licenses/designate", paToken, map[string]string{
		"licenseId": licenseID,
	})
	s.Require().Equal(http.StatusCreated, designated.Code, designated.Body.String())
	var designation map[string]any
	s.decode(designated, &designation)
	s.Equal("ACTIVE", designation["status"])

	listed := s.do(http.MethodGet, "/licenses/designations", paToken, nil)
	s.Require().Equal(http.StatusOK, listed.Code)
	var designations []map[string]any
	s.decode(listed, &designations)
	s.Require().Len(designations, 1)

	// PA applies for an AK privilege and pays the fee.
	applied := s.do(http.MethodPost, "/privileges/apply", paToken, map[string]any{
		"practitionerId":      practitionerID,
		"remoteStateId":       s.akID,
		"qualifyingLicenseId": licenseID,
		"attestationType":     "COMPACT_TERMS",
		"attestationAccepted": true,
	})
	s.Require().Equal(http.StatusCreated, applied.Code, applied.Body.String())
	var app map[string]any
	s.decode(applied, &app)
	applicationID := app["id"].(string)
	s.Equal("SUBMITTED", app["status"])

	paid := s.do(http.MethodPost, "/privileges/pay", paToken, map[string]any{
		"applicationId": applicationID,
		"amount":        12500,
	})
	s.Require().Equal(http.StatusOK, paid.Code, paid.Body.String())
	var paidApp map[string]any
	s.decode(paid, &paidApp)
	s.Equal("UNDER_REVIEW", paidApp["status"])

	// AK admin reviews and approves.
	review := s.do(http.MethodGet, "/privileges/review?status=UNDER_REVIEW", akToken, nil)
	s.Require().Equal(http.StatusOK, review.Code)
	var reviewQueue []map[string]any
	s.decode(review, &reviewQueue)
	s.Require().Len(reviewQueue, 1)

	determined := s.do(http.MethodPost, "/privileges/verify", akToken, map[string]any{
		"applicationId": applicationID,
		"status":        "APPROVED",
	})
	s.Require().Equal(http.StatusOK, determined.Code, determined.Body.String())
	var outcome map[string]any
	s.decode(determined, &outcome)
	s.Equal("APPROVED", outcome["application"].(map[string]any)["status"])
	s.Equal("ACTIVE", outcome["privilege"].(map[string]any)["status"])

	// PA sees the issued privilege.
	privileges := s.do(http.MethodGet, "/privileges", paToken, nil)
	s.Require().Equal(http.StatusOK, privileges.Code)
	var privilegeList []map[string]any
	s.decode(privileges, &privilegeList)
	s.Require().Len(privilegeList, 1)
	s.Equal("ACTIVE", privilegeList[0]["status"])

	// Public search finds the practitioner by name and home state.
	found := s.do(http.MethodGet, "/privileges/search?name=Alex&qualifyingLicenseState=MA", "", nil)
	s.Require().Equal(http.StatusOK, found.Code)
	var results []map[string]any
	s.decode(found, &results)
	s.Require().Len(results, 1)
	s.Equal(practitionerID, results[0]["practitionerId"])

	missed := s.do(http.MethodGet, "/privileges/search?name=Alex&qualifyingLicenseState=ZZ", "", nil)
	s.Require().Equal(http.StatusOK, missed.Code)
	s.JSONEq(`[]`, missed.Body.String())
}
