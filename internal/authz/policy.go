// Package authz is the single authorization table for the compact. Every
// mutating or scoped-read operation consults Authorize before touching
// storage, so role and jurisdiction rules live in one unit-testable place
// instead of being scattered across handlers.
package authz

import (
	"time"

	"licensure/internal/identity"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
)

// Action names one operation gated by the policy.
type Action string

const (
	ActionCreateLicense        Action = "license:create"
	ActionVerifyLicense        Action = "license:verify"
	ActionDesignateLicense     Action = "license:designate"
	ActionListOwnLicenses      Action = "license:list_own"
	ActionReviewLicenses       Action = "license:list_review"
	ActionApplyPrivilege       Action = "privilege:apply"
	ActionRecordPayment        Action = "privilege:pay"
	ActionDetermineApplication Action = "privilege:determine"
	ActionListOwnPrivileges    Action = "privilege:list_own"
	ActionListOwnApplications  Action = "privilege:list_applications"
	ActionReviewApplications   Action = "privilege:review"
	ActionSearchPractitioners  Action = "practitioner:search"
)

// Actor is the authenticated caller as supplied by the identity layer.
// PractitionerID is resolved lazily by callers that need ownership checks.
type Actor struct {
	Authenticated  bool
	UserID         domain.UserID
	Role           identity.Role
	MemberStateID  *domain.MemberStateID
	PractitionerID *domain.PractitionerID
}

// Anonymous is the actor for unauthenticated calls (public search).
var Anonymous = Actor{}

// Resource carries the facts about the target entity that scoping rules
// need. Only the fields relevant to the action are consulted.
type Resource struct {
	LicenseOwner        *domain.PractitionerID
	LicenseIssuingState *domain.MemberStateID
	LicenseVerified     bool
	LicenseExpiresAt    time.Time
	Now                 time.Time
}

// roleGates maps each non-public action to the role it requires and the
// denial message shown to callers.
var roleGates = map[Action]struct {
	role    identity.Role
	message string
}{
	ActionCreateLicense:        {identity.RolePractitioner, "Only practitioners can create licenses."},
	ActionVerifyLicense:        {identity.RoleStateAdmin, "Only state admins can verify licenses"},
	ActionDesignateLicense:     {identity.RolePractitioner, "Only practitioners can designate a license"},
	ActionListOwnLicenses:      {identity.RolePractitioner, "Unauthorized"},
	ActionReviewLicenses:       {identity.RoleStateAdmin, "Unauthorized"},
	ActionApplyPrivilege:       {identity.RolePractitioner, "Only practitioners may apply"},
	ActionRecordPayment:        {identity.RolePractitioner, "Only practitioners may pay"},
	ActionDetermineApplication: {identity.RoleStateAdmin, "Only state admins may verify applications"},
	ActionListOwnPrivileges:    {identity.RolePractitioner, "Only practitioners may view privileges"},
	ActionListOwnApplications:  {identity.RolePractitioner, "Only practitioners may view applications"},
	ActionReviewApplications:   {identity.RoleStateAdmin, "Only state admins may review applications"},
}

// Gate runs the authentication and role stages of the policy without any
// resource scoping. Services call it before loading state so an
// unauthenticated or wrong-role caller is rejected ahead of lookups that
// would fail with a different error.
func Gate(actor Actor, action Action) error {
	if action == ActionSearchPractitioners {
		return nil
	}
	if !actor.Authenticated {
		return dErrors.New(dErrors.CodeUnauthenticated, "Unauthorized")
	}
	gate, ok := roleGates[action]
	if !ok {
		return dErrors.Newf(dErrors.CodeForbidden, "unknown action %q", action)
	}
	if actor.Role != gate.role {
		return dErrors.New(dErrors.CodeForbidden, gate.message)
	}
	return nil
}

// Authorize returns nil when the actor may perform the action on the
// resource. Unauthenticated calls are rejected before any role evaluation;
// search is the only public action.
func Authorize(actor Actor, action Action, res Resource) error {
	if err := Gate(actor, action); err != nil {
		return err
	}

	switch action {
	case ActionVerifyLicense:
		if actor.MemberStateID == nil {
			return dErrors.New(dErrors.CodeValidation, "State admin missing member state")
		}
		if res.LicenseIssuingState == nil || *res.LicenseIssuingState != *actor.MemberStateID {
			return dErrors.New(dErrors.CodeForbidden, "Cannot verify licenses outside your member state")
		}

	case ActionDesignateLicense:
		if actor.PractitionerID == nil || res.LicenseOwner == nil || *res.LicenseOwner != *actor.PractitionerID {
			return dErrors.New(dErrors.CodeForbidden, "Update not allowed")
		}
		if !res.LicenseVerified {
			return dErrors.New(dErrors.CodeValidation, "License must be verified before designation")
		}
		if res.LicenseExpiresAt.Before(res.Now) {
			return dErrors.New(dErrors.CodeValidation, "This license is expired.")
		}

	case ActionReviewLicenses, ActionReviewApplications:
		if actor.MemberStateID == nil {
			return dErrors.New(dErrors.CodeValidation, "State admin missing member state")
		}
	}
	return nil
}
