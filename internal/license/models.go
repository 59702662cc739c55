package license

import (
	"time"

	"licensure/pkg/domain"
)

// VerificationStatus is mutated only by the issuing jurisdiction's
// administrator. Values are part of the wire contract.
type VerificationStatus string

const (
	VerificationUnverified  VerificationStatus = "UNVERIFIED"
	VerificationVerified    VerificationStatus = "VERIFIED"
	VerificationNotEligible VerificationStatus = "NOT_ELIGIBLE"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationUnverified, VerificationVerified, VerificationNotEligible:
		return true
	default:
		return false
	}
}

// SelfReportedStatus is what the practitioner claims about the license.
type SelfReportedStatus string

const (
	SelfReportedActive     SelfReportedStatus = "ACTIVE"
	SelfReportedExpired    SelfReportedStatus = "EXPIRED"
	SelfReportedSuspended  SelfReportedStatus = "SUSPENDED"
	SelfReportedRestricted SelfReportedStatus = "RESTRICTED"
)

func (s SelfReportedStatus) Valid() bool {
	switch s {
	case SelfReportedActive, SelfReportedExpired, SelfReportedSuspended, SelfReportedRestricted:
		return true
	default:
		return false
	}
}

// DesignationStatus tracks the qualifying designation lifecycle.
type DesignationStatus string

const (
	DesignationActive   DesignationStatus = "ACTIVE"
	DesignationExpired  DesignationStatus = "EXPIRED"
	DesignationArchived DesignationStatus = "ARCHIVED"
)

// License is a credential issued by a home jurisdiction. Born UNVERIFIED;
// only verification mutates it afterwards.
type License struct {
	ID                 domain.LicenseID
	PractitionerID     domain.PractitionerID
	IssuingStateID     domain.MemberStateID
	LicenseNumber      string
	IssueDate          time.Time
	ExpirationDate     time.Time
	SelfReportedStatus SelfReportedStatus
	VerificationStatus VerificationStatus
	EvidenceURL        *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Expired reports whether the license's expiration date has passed.
func (l License) Expired(now time.Time) bool {
	return l.ExpirationDate.Before(now)
}

// Designation marks one license as the practitioner's qualifying license.
// Invariant: at most one ACTIVE designation per practitioner at any instant.
type Designation struct {
	ID             domain.DesignationID
	PractitionerID domain.PractitionerID
	LicenseID      domain.LicenseID
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
	Status         DesignationStatus
	CreatedAt      time.Time
}
