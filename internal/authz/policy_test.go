package authz_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"licensure/internal/authz"
	"licensure/internal/identity"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
)

func practitionerActor(practitionerID *domain.PractitionerID) authz.Actor {
	return authz.Actor{
		Authenticated:  true,
		UserID:         domain.NewUserID(),
		Role:           identity.RolePractitioner,
		PractitionerID: practitionerID,
	}
}

func stateAdminActor(stateID *domain.MemberStateID) authz.Actor {
	return authz.Actor{
		Authenticated: true,
		UserID:        domain.NewUserID(),
		Role:          identity.RoleStateAdmin,
		MemberStateID: stateID,
	}
}

func TestAuthorize(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	practitionerID := domain.NewPractitionerID()
	otherPractitionerID := domain.NewPractitionerID()
	stateID := domain.NewMemberStateID()
	otherStateID := domain.NewMemberStateID()

	validDesignation := authz.Resource{
		LicenseOwner:     &practitionerID,
		LicenseVerified:  true,
		LicenseExpiresAt: now.AddDate(1, 0, 0),
		Now:              now,
	}

	tests := []struct {
		name     string
		actor    authz.Actor
		action   authz.Action
		resource authz.Resource
		wantCode dErrors.Code
		wantMsg  string
	}{
		{
			name:   "search is public",
			actor:  authz.Anonymous,
			action: authz.ActionSearchPractitioners,
		},
		{
			name:     "unauthenticated actor rejected",
			actor:    authz.Anonymous,
			action:   authz.ActionCreateLicense,
			wantCode: dErrors.CodeUnauthenticated,
			wantMsg:  "Unauthorized",
		},
		{
			name:   "practitioner creates license",
			actor:  practitionerActor(nil),
			action: authz.ActionCreateLicense,
		},
		{
			name:     "admin cannot create license",
			actor:    stateAdminActor(&stateID),
			action:   authz.ActionCreateLicense,
			wantCode: dErrors.CodeForbidden,
			wantMsg:  "Only practitioners can create licenses.",
		},
		{
			name:     "admin verifies license in own state",
			actor:    stateAdminActor(&stateID),
			action:   authz.ActionVerifyLicense,
			resource: authz.Resource{LicenseIssuingState: &stateID},
		},
		{
			name:     "admin cannot verify other state's license",
			actor:    stateAdminActor(&otherStateID),
			action:   authz.ActionVerifyLicense,
			resource: authz.Resource{LicenseIssuingState: &stateID},
			wantCode: dErrors.CodeForbidden,
			wantMsg:  "Cannot verify licenses outside your member state",
		},
		{
			name:     "admin without member state cannot verify",
			actor:    stateAdminActor(nil),
			action:   authz.ActionVerifyLicense,
			resource: authz.Resource{LicenseIssuingState: &stateID},
			wantCode: dErrors.CodeValidation,
			wantMsg:  "State admin missing member state",
		},
		{
			name:     "practitioner cannot verify",
			actor:    practitionerActor(&practitionerID),
			action:   authz.ActionVerifyLicense,
			resource: authz.Resource{LicenseIssuingState: &stateID},
			wantCode: dErrors.CodeForbidden,
			wantMsg:  "Only state admins can verify licenses",
		},
		{
			name:     "owner designates verified unexpired license",
			actor:    practitionerActor(&practitionerID),
			action:   authz.ActionDesignateLicense,
			resource: validDesignation,
		},
		{
			name:   "non-owner cannot designate",
			actor:  practitionerActor(&otherPractitionerID),
			action: authz.ActionDesignateLicense,
			resource: authz.Resource{
				LicenseOwner:     &practitionerID,
				LicenseVerified:  true,
				LicenseExpiresAt: now.AddDate(1, 0, 0),
				Now:              now,
			},
			wantCode: dErrors.CodeForbidden,
			wantMsg:  "Update not allowed",
		},
		{
			name:   "unverified license cannot be designated",
			actor:  practitionerActor(&practitionerID),
			action: authz.ActionDesignateLicense,
			resource: authz.Resource{
				LicenseOwner:     &practitionerID,
				LicenseExpiresAt: now.AddDate(1, 0, 0),
				Now:              now,
			},
			wantCode: dErrors.CodeValidation,
			wantMsg:  "License must be verified before designation",
		},
		{
			name:   "expired license cannot be designated",
			actor:  practitionerActor(&practitionerID),
			action: authz.ActionDesignateLicense,
			resource: authz.Resource{
				LicenseOwner:     &practitionerID,
				LicenseVerified:  true,
				LicenseExpiresAt: now.AddDate(-1, 0, 0),
				Now:              now,
			},
			wantCode: dErrors.CodeValidation,
			wantMsg:  "This license is expired.",
		},
		{
			name:   "practitioner lists own licenses",
			actor:  practitionerActor(nil),
			action: authz.ActionListOwnLicenses,
		},
		{
			name:   "admin reviews licenses",
			actor:  stateAdminActor(&stateID),
			action: authz.ActionReviewLicenses,
		},
		{
			name:     "commission admin cannot list licenses",
			actor:    authz.Actor{Authenticated: true, UserID: domain.NewUserID(), Role: identity.RoleCommissionAdmin},
			action:   authz.ActionListOwnLicenses,
			wantCode: dErrors.CodeForbidden,
			wantMsg:  "Unauthorized",
		},
		{
			name:   "practitioner applies",
			actor:  practitionerActor(nil),
			action: authz.ActionApplyPrivilege,
		},
		{
			name:     "admin cannot apply",
			actor:    stateAdminActor(&stateID),
			action:   authz.ActionApplyPrivilege,
			wantCode: dErrors.CodeForbidden,
			wantMsg:  "Only practitioners may apply",
		},
		{
			name:   "practitioner pays",
			actor:  practitionerActor(nil),
			action: authz.ActionRecordPayment,
		},
		{
			name:   "admin determines applications",
			actor:  stateAdminActor(&stateID),
			action: authz.ActionDetermineApplication,
		},
		{
			name:     "practitioner cannot determine",
			actor:    practitionerActor(nil),
			action:   authz.ActionDetermineApplication,
			wantCode: dErrors.CodeForbidden,
			wantMsg:  "Only state admins may verify applications",
		},
		{
			name:   "admin reviews applications for own state",
			actor:  stateAdminActor(&stateID),
			action: authz.ActionReviewApplications,
		},
		{
			name:     "admin without state cannot review applications",
			actor:    stateAdminActor(nil),
			action:   authz.ActionReviewApplications,
			wantCode: dErrors.CodeValidation,
			wantMsg:  "State admin missing member state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Authorize(tt.actor, tt.action, tt.resource)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, tt.wantCode))
			assert.Equal(t, tt.wantMsg, dErrors.MessageOf(err))
		})
	}
}

func TestGateStopsBeforeResourceScoping(t *testing.T) {
	practitionerID := domain.NewPractitionerID()
	stateID := domain.NewMemberStateID()

	assert.NoError(t, authz.Gate(authz.Anonymous, authz.ActionSearchPractitioners))

	err := authz.Gate(authz.Anonymous, authz.ActionDesignateLicense)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	assert.Equal(t, "Unauthorized", dErrors.MessageOf(err))

	err = authz.Gate(stateAdminActor(&stateID), authz.ActionDesignateLicense)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	assert.Equal(t, "Only practitioners can designate a license", dErrors.MessageOf(err))

	// Ownership is not Gate's concern; a practitioner passes even with no
	// resolved practitioner record.
	assert.NoError(t, authz.Gate(practitionerActor(&practitionerID), authz.ActionDesignateLicense))
	assert.NoError(t, authz.Gate(practitionerActor(nil), authz.ActionDesignateLicense))
}
