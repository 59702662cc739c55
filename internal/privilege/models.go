package privilege

import (
	"time"

	"github.com/google/uuid"

	"licensure/internal/identity"
	"licensure/internal/license"
	"licensure/pkg/domain"
)

// ApplicationStatus tracks a privilege application through submission,
// payment and determination. DRAFT, NEEDS_INFO and ISSUED are reserved for
// future workflow steps; no current transition produces them.
type ApplicationStatus string

const (
	ApplicationDraft       ApplicationStatus = "DRAFT"
	ApplicationSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationNeedsInfo   ApplicationStatus = "NEEDS_INFO"
	ApplicationApproved    ApplicationStatus = "APPROVED"
	ApplicationDenied      ApplicationStatus = "DENIED"
	ApplicationIssued      ApplicationStatus = "ISSUED"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationUnderReview,
		ApplicationNeedsInfo, ApplicationApproved, ApplicationDenied, ApplicationIssued:
		return true
	}
	return false
}

type PrivilegeStatus string

const (
	PrivilegeActive    PrivilegeStatus = "ACTIVE"
	PrivilegeExpired   PrivilegeStatus = "EXPIRED"
	PrivilegeRevoked   PrivilegeStatus = "REVOKED"
	PrivilegeSuspended PrivilegeStatus = "SUSPENDED"
)

type PaymentStatus string

const (
	PaymentRequiresPayment PaymentStatus = "REQUIRES_PAYMENT"
	PaymentPending         PaymentStatus = "PENDING"
	PaymentPaid            PaymentStatus = "PAID"
	PaymentFailed          PaymentStatus = "FAILED"
	PaymentRefunded        PaymentStatus = "REFUNDED"
)

// Application is a practitioner's request to practice in a remote member
// state on the strength of their qualifying license.
type Application struct {
	ID                  domain.ApplicationID
	PractitionerID      domain.PractitionerID
	RemoteStateID       domain.MemberStateID
	QualifyingLicenseID domain.LicenseID
	Status              ApplicationStatus
	ApplicantNote       *string
	ReviewerNote        *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Attestation records the practitioner's acceptance of the remote state's
// terms, captured once at submission time.
type Attestation struct {
	ID            uuid.UUID
	ApplicationID domain.ApplicationID
	Type          string
	Accepted      bool
	AcceptedAt    *time.Time
	Text          *string
	CreatedAt     time.Time
}

// PaymentTransaction holds the recorded fee for an application. At most one
// row exists per application; repeat payments update it in place. Amount is
// in cents.
type PaymentTransaction struct {
	ID            uuid.UUID
	ApplicationID domain.ApplicationID
	Amount        int64
	Status        PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Privilege authorizes practice in a remote member state. Created exactly
// once, when an application is approved.
type Privilege struct {
	ID                  domain.PrivilegeID
	PractitionerID      domain.PractitionerID
	RemoteStateID       domain.MemberStateID
	ApplicationID       domain.ApplicationID
	QualifyingLicenseID domain.LicenseID
	Status              PrivilegeStatus
	IssuedAt            time.Time
	ExpiresAt           *time.Time
	CreatedAt           time.Time
}

// SearchResult pairs a matched practitioner with their active qualifying
// license and full privilege list.
type SearchResult struct {
	Practitioner      identity.PractitionerProfile
	QualifyingLicense license.License
	Privileges        []Privilege
}
