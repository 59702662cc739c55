package license

import (
	"context"

	"licensure/pkg/domain"
)

// ListFilter narrows a license listing. Zero values mean "no filter";
// results come back ordered by expiration date ascending.
type ListFilter struct {
	PractitionerID     domain.PractitionerID
	IssuingStateID     domain.MemberStateID
	VerificationStatus VerificationStatus
}

type Store interface {
	Create(ctx context.Context, license License) error
	FindByID(ctx context.Context, id domain.LicenseID) (License, error)
	Update(ctx context.Context, license License) error
	List(ctx context.Context, filter ListFilter) ([]License, error)
}

type DesignationStore interface {
	Create(ctx context.Context, designation Designation) error
	Update(ctx context.Context, designation Designation) error
	// FindActiveByPractitioner returns the single ACTIVE designation, or
	// sentinel.ErrNotFound when the practitioner has none.
	FindActiveByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) (Designation, error)
	// ListByPractitioner returns designations newest first.
	ListByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) ([]Designation, error)
}

// TxRunner provides the transactional boundary for multi-row mutations:
// a status write and its history row, or archive-then-create in Designate,
// commit or fail as one unit. The key serializes concurrent calls touching
// the same aggregate.
type TxRunner interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
