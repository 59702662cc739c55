package privilege_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"licensure/internal/audit"
	"licensure/internal/authz"
	"licensure/internal/identity"
	identitystore "licensure/internal/identity/store"
	"licensure/internal/license"
	licensestore "licensure/internal/license/store"
	"licensure/internal/memberstate"
	"licensure/internal/privilege"
	privilegestore "licensure/internal/privilege/store"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
	"licensure/pkg/platform/tx"
	"licensure/pkg/requestcontext"
)

type PrivilegeServiceSuite struct {
	suite.Suite

	users         *identitystore.InMemoryUserStore
	practitioners *identitystore.InMemoryPractitionerStore
	licenses      *licensestore.InMemoryLicenseStore
	designations  *licensestore.InMemoryDesignationStore
	applications  *privilegestore.InMemoryApplicationStore
	payments      *privilegestore.InMemoryPaymentStore
	privileges    *privilegestore.InMemoryPrivilegeStore
	states        *memberstate.InMemoryStore
	trail         *audit.Trail
	service       *privilege.Service

	now      time.Time
	homeID   domain.MemberStateID
	remoteID domain.MemberStateID
}

func TestPrivilegeServiceSuite(t *testing.T) {
	suite.Run(t, new(PrivilegeServiceSuite))
}

func (s *PrivilegeServiceSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.users = identitystore.NewInMemoryUserStore()
	s.practitioners = identitystore.NewInMemoryPractitionerStore(s.users)
	s.licenses = licensestore.NewInMemoryLicenseStore()
	s.designations = licensestore.NewInMemoryDesignationStore()
	s.applications = privilegestore.NewInMemoryApplicationStore()
	s.payments = privilegestore.NewInMemoryPaymentStore()
	s.privileges = privilegestore.NewInMemoryPrivilegeStore()
	s.states = memberstate.NewInMemoryStore()
	s.trail = audit.NewTrail(audit.NewInMemoryStore())

	s.service = privilege.NewService(privilege.Deps{
		Applications:  s.applications,
		Attestations:  privilegestore.NewInMemoryAttestationStore(),
		Payments:      s.payments,
		Privileges:    s.privileges,
		Practitioners: s.practitioners,
		Designations:  s.designations,
		Licenses:      s.licenses,
		States:        s.states,
		Trail:         s.trail,
		TxRunner:      tx.NewShardedRunner(),
	})

	home := memberstate.MemberState{
		ID: domain.NewMemberStateID(), Code: "MA", Name: "Massachusetts", IsActive: true,
		CreatedAt: s.now, UpdatedAt: s.now,
	}
	remote := memberstate.MemberState{
		ID: domain.NewMemberStateID(), Code: "AK", Name: "Alaska", IsActive: true,
		CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.Require().NoError(s.states.Create(context.Background(), home))
	s.Require().NoError(s.states.Create(context.Background(), remote))
	s.homeID = home.ID
	s.remoteID = remote.ID
}

func (s *PrivilegeServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *PrivilegeServiceSuite) newPractitioner(email, firstName string) (authz.Actor, domain.PractitionerID) {
	user := identity.User{
		ID:        domain.NewUserID(),
		Email:     email,
		FirstName: firstName,
		LastName:  "Nguyen",
		Role:      identity.RolePractitioner,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.users.Create(s.ctx(), user, "hash"))

	practitioner := identity.Practitioner{
		ID:        domain.NewPractitionerID(),
		UserID:    user.ID,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.practitioners.Create(s.ctx(), practitioner))

	return authz.Actor{
		Authenticated: true,
		UserID:        user.ID,
		Role:          identity.RolePractitioner,
	}, practitioner.ID
}

func (s *PrivilegeServiceSuite) stateAdmin() authz.Actor {
	stateID := s.remoteID
	return authz.Actor{
		Authenticated: true,
		UserID:        domain.NewUserID(),
		Role:          identity.RoleStateAdmin,
		MemberStateID: &stateID,
	}
}

// qualifyingLicense stores a VERIFIED license and an ACTIVE designation for
// the practitioner, returning the license.
func (s *PrivilegeServiceSuite) qualifyingLicense(practitionerID domain.PractitionerID) license.License {
	lic := license.License{
		ID:                 domain.NewLicenseID(),
		PractitionerID:     practitionerID,
		IssuingStateID:     s.homeID,
		LicenseNumber:      "MA-100",
		IssueDate:          s.now.AddDate(-1, 0, 0),
		ExpirationDate:     s.now.AddDate(2, 0, 0),
		SelfReportedStatus: license.SelfReportedActive,
		VerificationStatus: license.VerificationVerified,
		CreatedAt:          s.now,
		UpdatedAt:          s.now,
	}
	s.Require().NoError(s.licenses.Create(s.ctx(), lic))
	s.Require().NoError(s.designations.Create(s.ctx(), license.Designation{
		ID:             domain.NewDesignationID(),
		PractitionerID: practitionerID,
		LicenseID:      lic.ID,
		EffectiveFrom:  lic.IssueDate,
		Status:         license.DesignationActive,
		CreatedAt:      s.now,
	}))
	return lic
}

func (s *PrivilegeServiceSuite) apply(actor authz.Actor, practitionerID domain.PractitionerID, licenseID domain.LicenseID) privilege.Application {
	app, err := s.service.Apply(s.ctx(), actor, privilege.ApplyInput{
		PractitionerID:      practitionerID,
		RemoteStateID:       s.remoteID,
		QualifyingLicenseID: licenseID,
		AttestationType:     "COMPACT_TERMS",
		AttestationAccepted: true,
	})
	s.Require().NoError(err)
	return app
}

func (s *PrivilegeServiceSuite) TestApplyCreatesSubmittedApplication() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)

	app := s.apply(actor, practitionerID, lic.ID)

	s.Equal(privilege.ApplicationSubmitted, app.Status)
	s.Equal(practitionerID, app.PractitionerID)
	s.Equal(s.remoteID, app.RemoteStateID)

	history, err := s.service.ApplicationHistory(s.ctx(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("SUBMITTED", history[0].Status)
	s.Equal("Application submitted", history[0].Reason)
}

func (s *PrivilegeServiceSuite) TestApplyRejectsUnknownPractitioner() {
	actor, _ := s.newPractitioner("pa@example.com", "Alex")

	_, err := s.service.Apply(s.ctx(), actor, privilege.ApplyInput{
		PractitionerID:      domain.NewPractitionerID(),
		RemoteStateID:       s.remoteID,
		QualifyingLicenseID: domain.NewLicenseID(),
		AttestationType:     "COMPACT_TERMS",
		AttestationAccepted: true,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *PrivilegeServiceSuite) TestApplyRequiresPractitionerRole() {
	_, practitionerID := s.newPractitioner("pa@example.com", "Alex")

	_, err := s.service.Apply(s.ctx(), s.stateAdmin(), privilege.ApplyInput{
		PractitionerID: practitionerID,
		RemoteStateID:  s.remoteID,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal("Only practitioners may apply", dErrors.MessageOf(err))
}

func (s *PrivilegeServiceSuite) TestRecordPaymentAdvancesToUnderReview() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)

	updated, err := s.service.RecordPayment(s.ctx(), actor, app.ID, 12500)
	s.Require().NoError(err)
	s.Equal(privilege.ApplicationUnderReview, updated.Status)

	payment, err := s.service.PaymentForApplication(s.ctx(), app.ID)
	s.Require().NoError(err)
	s.Equal(int64(12500), payment.Amount)
	s.Equal(privilege.PaymentPaid, payment.Status)

	history, err := s.service.ApplicationHistory(s.ctx(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("UNDER_REVIEW", history[0].Status)
	s.Equal("Payment received", history[0].Reason)
}

func (s *PrivilegeServiceSuite) TestRecordPaymentIsIdempotentOnRowCount() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)

	_, err := s.service.RecordPayment(s.ctx(), actor, app.ID, 10000)
	s.Require().NoError(err)
	first, err := s.service.PaymentForApplication(s.ctx(), app.ID)
	s.Require().NoError(err)

	_, err = s.service.RecordPayment(s.ctx(), actor, app.ID, 15000)
	s.Require().NoError(err)

	second, err := s.service.PaymentForApplication(s.ctx(), app.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(int64(15000), second.Amount)
}

func (s *PrivilegeServiceSuite) TestConcurrentPaymentsKeepSingleRow() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)

	var g errgroup.Group
	for i := range 8 {
		amount := int64(10000 + i)
		g.Go(func() error {
			_, err := s.service.RecordPayment(s.ctx(), actor, app.ID, amount)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	payment, err := s.service.PaymentForApplication(s.ctx(), app.ID)
	s.Require().NoError(err)
	s.Equal(privilege.PaymentPaid, payment.Status)
}

func (s *PrivilegeServiceSuite) TestRecordPaymentUnknownApplication() {
	actor, _ := s.newPractitioner("pa@example.com", "Alex")

	_, err := s.service.RecordPayment(s.ctx(), actor, domain.NewApplicationID(), 10000)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal("Application not found", dErrors.MessageOf(err))
}

func (s *PrivilegeServiceSuite) TestDetermineApprovedIssuesPrivilege() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)
	_, err := s.service.RecordPayment(s.ctx(), actor, app.ID, 10000)
	s.Require().NoError(err)

	expiresAt := s.now.AddDate(1, 0, 0)
	result, err := s.service.Determine(s.ctx(), s.stateAdmin(), privilege.DetermineInput{
		ApplicationID: app.ID,
		Status:        privilege.ApplicationApproved,
		ExpiresAt:     &expiresAt,
	})
	s.Require().NoError(err)
	s.Equal(privilege.ApplicationApproved, result.Application.Status)
	s.Require().NotNil(result.Privilege)
	s.Equal(privilege.PrivilegeActive, result.Privilege.Status)
	s.Equal(practitionerID, result.Privilege.PractitionerID)
	s.Equal(s.remoteID, result.Privilege.RemoteStateID)
	s.Equal(lic.ID, result.Privilege.QualifyingLicenseID)
	s.Require().NotNil(result.Privilege.ExpiresAt)
	s.Equal(expiresAt, *result.Privilege.ExpiresAt)

	privileges, err := s.service.ListPrivileges(s.ctx(), actor)
	s.Require().NoError(err)
	s.Require().Len(privileges, 1)
	s.Equal(result.Privilege.ID, privileges[0].ID)
}

func (s *PrivilegeServiceSuite) TestDetermineDeniedIssuesNoPrivilege() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)

	result, err := s.service.Determine(s.ctx(), s.stateAdmin(), privilege.DetermineInput{
		ApplicationID: app.ID,
		Status:        privilege.ApplicationDenied,
	})
	s.Require().NoError(err)
	s.Equal(privilege.ApplicationDenied, result.Application.Status)
	s.Nil(result.Privilege)

	privileges, err := s.service.ListPrivileges(s.ctx(), actor)
	s.Require().NoError(err)
	s.Empty(privileges)
}

func (s *PrivilegeServiceSuite) TestDetermineRejectsOtherStatuses() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)

	for _, status := range []privilege.ApplicationStatus{
		privilege.ApplicationSubmitted,
		privilege.ApplicationUnderReview,
		privilege.ApplicationNeedsInfo,
		"BOGUS",
	} {
		_, err := s.service.Determine(s.ctx(), s.stateAdmin(), privilege.DetermineInput{
			ApplicationID: app.ID,
			Status:        status,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	}
}

func (s *PrivilegeServiceSuite) TestDetermineRequiresStateAdmin() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)

	_, err := s.service.Determine(s.ctx(), actor, privilege.DetermineInput{
		ApplicationID: app.ID,
		Status:        privilege.ApplicationApproved,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *PrivilegeServiceSuite) TestListApplicationsScopedToCaller() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	s.apply(actor, practitionerID, lic.ID)

	other, otherID := s.newPractitioner("other@example.com", "Sam")
	otherLic := s.qualifyingLicense(otherID)
	s.apply(other, otherID, otherLic.ID)

	apps, err := s.service.ListApplications(s.ctx(), actor)
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal(practitionerID, apps[0].PractitionerID)
}

func (s *PrivilegeServiceSuite) TestListApplicationsForStateFiltersByStatus() {
	actor, practitionerID := s.newPractitioner("pa@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	paid := s.apply(actor, practitionerID, lic.ID)
	s.apply(actor, practitionerID, lic.ID)
	_, err := s.service.RecordPayment(s.ctx(), actor, paid.ID, 10000)
	s.Require().NoError(err)

	admin := s.stateAdmin()

	all, err := s.service.ListApplicationsForState(s.ctx(), admin, "")
	s.Require().NoError(err)
	s.Len(all, 2)

	underReview, err := s.service.ListApplicationsForState(s.ctx(), admin, privilege.ApplicationUnderReview)
	s.Require().NoError(err)
	s.Require().Len(underReview, 1)
	s.Equal(paid.ID, underReview[0].ID)
}

func (s *PrivilegeServiceSuite) TestSearchRequiresActiveQualifyingDesignation() {
	actor, practitionerID := s.newPractitioner("alex@example.com", "Alex")
	lic := s.qualifyingLicense(practitionerID)
	app := s.apply(actor, practitionerID, lic.ID)
	_, err := s.service.RecordPayment(s.ctx(), actor, app.ID, 10000)
	s.Require().NoError(err)
	_, err = s.service.Determine(s.ctx(), s.stateAdmin(), privilege.DetermineInput{
		ApplicationID: app.ID,
		Status:        privilege.ApplicationApproved,
	})
	s.Require().NoError(err)

	// Matching name but no designation.
	s.newPractitioner("alexa@example.com", "Alexa")

	results, err := s.service.Search(s.ctx(), privilege.SearchInput{Name: "Alex"})
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(practitionerID, results[0].Practitioner.Practitioner.ID)
	s.Equal(lic.ID, results[0].QualifyingLicense.ID)
	s.Require().Len(results[0].Privileges, 1)
}

func (s *PrivilegeServiceSuite) TestSearchCapAppliesAfterDesignationFilter() {
	// More name matches than the result cap, with the only designated
	// practitioner sorted last. The cap must not swallow the one real hit.
	for i := 0; i < 30; i++ {
		s.newPractitioner(fmt.Sprintf("pa%02d@example.com", i), fmt.Sprintf("Casey%02d", i))
	}
	_, practitionerID := s.newPractitioner("zora@example.com", "Zora")
	s.qualifyingLicense(practitionerID)

	results, err := s.service.Search(s.ctx(), privilege.SearchInput{Name: "Nguyen"})
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(practitionerID, results[0].Practitioner.Practitioner.ID)
}

func (s *PrivilegeServiceSuite) TestSearchFiltersByQualifyingState() {
	_, practitionerID := s.newPractitioner("alex@example.com", "Alex")
	s.qualifyingLicense(practitionerID)

	matched, err := s.service.Search(s.ctx(), privilege.SearchInput{Name: "Alex", QualifyingState: "ma"})
	s.Require().NoError(err)
	s.Len(matched, 1)

	unmatched, err := s.service.Search(s.ctx(), privilege.SearchInput{Name: "Alex", QualifyingState: "ZZ"})
	s.Require().NoError(err)
	s.Empty(unmatched)
}

func (s *PrivilegeServiceSuite) TestSearchBlankNameReturnsEmpty() {
	results, err := s.service.Search(s.ctx(), privilege.SearchInput{Name: "   "})
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *PrivilegeServiceSuite) TestSearchIsCaseSensitiveOnName() {
	_, practitionerID := s.newPractitioner("alex@example.com", "Alex")
	s.qualifyingLicense(practitionerID)

	results, err := s.service.Search(s.ctx(), privilege.SearchInput{Name: "alex"})
	s.Require().NoError(err)
	s.Empty(results)
}
