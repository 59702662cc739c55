package privilege

import (
	"context"

	"licensure/pkg/domain"
)

type ApplicationStore interface {
	Create(ctx context.Context, app Application) error
	FindByID(ctx context.Context, id domain.ApplicationID) (Application, error)
	Update(ctx context.Context, app Application) error
	// ListByPractitioner returns the practitioner's applications, newest first.
	ListByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) ([]Application, error)
	// ListByRemoteState returns applications targeting the state, newest
	// first, optionally filtered by status (empty status means all).
	ListByRemoteState(ctx context.Context, stateID domain.MemberStateID, status ApplicationStatus) ([]Application, error)
}

type AttestationStore interface {
	Create(ctx context.Context, attestation Attestation) error
	ListByApplication(ctx context.Context, applicationID domain.ApplicationID) ([]Attestation, error)
}

// PaymentStore keys transactions by application. Upsert must be atomic so
// concurrent payments for one application never produce a second row; the
// existing row keeps its ID and CreatedAt.
type PaymentStore interface {
	Upsert(ctx context.Context, payment PaymentTransaction) (PaymentTransaction, error)
	FindByApplication(ctx context.Context, applicationID domain.ApplicationID) (PaymentTransaction, error)
}

type PrivilegeStore interface {
	Create(ctx context.Context, privilege Privilege) error
	// ListByPractitioner returns the practitioner's privileges, newest first.
	ListByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) ([]Privilege, error)
}

// TxRunner serializes the payment upsert and the application transition into
// one atomic unit, keyed by application.
type TxRunner interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
