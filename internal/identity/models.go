package identity

import (
	"time"

	"licensure/pkg/domain"
)

// Role gates every scoped operation. Values are part of the wire contract.
type Role string

const (
	RolePractitioner    Role = "PA"
	RoleStateAdmin      Role = "STATE_ADMIN"
	RoleCommissionAdmin Role = "COMMISSION_ADMIN"
)

// Valid reports whether the role is one of the known compact roles.
func (r Role) Valid() bool {
	switch r {
	case RolePractitioner, RoleStateAdmin, RoleCommissionAdmin:
		return true
	default:
		return false
	}
}

// User is an authenticated account. State admins carry the member state they
// administer; practitioners are linked to a Practitioner record instead.
type User struct {
	ID            domain.UserID
	Email         string
	FirstName     string
	LastName      string
	Role          Role
	MemberStateID *domain.MemberStateID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Practitioner is the professional aggregate root. One per PA user; owns
// licenses, designations, applications, and privileges.
type Practitioner struct {
	ID        domain.PractitionerID
	UserID    domain.UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is an authenticated session bound to an opaque token. Expiry is
// enforced by the session store's TTL, lazily on read.
type Session struct {
	Token     string
	User      User
	CreatedAt time.Time
}
