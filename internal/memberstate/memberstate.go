// Package memberstate tracks the jurisdictions participating in the compact.
package memberstate

import (
	"context"
	"time"

	"licensure/pkg/domain"
)

// MemberState is a jurisdiction participating in the compact.
type MemberState struct {
	ID        domain.MemberStateID
	Code      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists member states. List returns states sorted by name;
// inactive states are excluded unless requested.
type Store interface {
	Create(ctx context.Context, state MemberState) error
	FindByID(ctx context.Context, id domain.MemberStateID) (MemberState, error)
	FindByCode(ctx context.Context, code string) (MemberState, error)
	List(ctx context.Context, includeInactive bool) ([]MemberState, error)
}
