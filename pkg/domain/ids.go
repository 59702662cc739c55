// Package domain defines typed identifiers shared across modules.
//
// Each aggregate gets its own UUID-backed type so the compiler rejects
// cross-entity assignment. Parse helpers validate IDs at trust boundaries;
// anything arriving over the wire goes through a ParseXxxID before use.
package domain

import (
	"database/sql/driver"

	"github.com/google/uuid"

	dErrors "licensure/pkg/domain-errors"
)

type (
	UserID         uuid.UUID
	PractitionerID uuid.UUID
	MemberStateID  uuid.UUID
	LicenseID      uuid.UUID
	DesignationID  uuid.UUID
	ApplicationID  uuid.UUID
	PrivilegeID    uuid.UUID
)

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewPractitionerID() PractitionerID { return PractitionerID(uuid.New()) }
func NewMemberStateID() MemberStateID   { return MemberStateID(uuid.New()) }
func NewLicenseID() LicenseID           { return LicenseID(uuid.New()) }
func NewDesignationID() DesignationID   { return DesignationID(uuid.New()) }
func NewApplicationID() ApplicationID   { return ApplicationID(uuid.New()) }
func NewPrivilegeID() PrivilegeID       { return PrivilegeID(uuid.New()) }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id PractitionerID) String() string { return uuid.UUID(id).String() }
func (id MemberStateID) String() string  { return uuid.UUID(id).String() }
func (id LicenseID) String() string      { return uuid.UUID(id).String() }
func (id DesignationID) String() string  { return uuid.UUID(id).String() }
func (id ApplicationID) String() string  { return uuid.UUID(id).String() }
func (id PrivilegeID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PractitionerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MemberStateID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id LicenseID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DesignationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id PrivilegeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText/UnmarshalText keep typed IDs rendering as canonical UUID
// strings in JSON and SQL scans; methods on uuid.UUID are not promoted to
// defined types.

func (id UserID) MarshalText() ([]byte, error)         { return marshalID(uuid.UUID(id)) }
func (id PractitionerID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }
func (id MemberStateID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }
func (id LicenseID) MarshalText() ([]byte, error)      { return marshalID(uuid.UUID(id)) }
func (id DesignationID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }
func (id ApplicationID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }
func (id PrivilegeID) MarshalText() ([]byte, error)    { return marshalID(uuid.UUID(id)) }

func (id *UserID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}

func (id *PractitionerID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}

func (id *MemberStateID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}

func (id *LicenseID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}

func (id *DesignationID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}

func (id *PrivilegeID) UnmarshalText(b []byte) error {
	return unmarshalID((*uuid.UUID)(id), b)
}

func marshalID(u uuid.UUID) ([]byte, error) {
	return []byte(u.String()), nil
}

func unmarshalID(dst *uuid.UUID, b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

// Scan/Value let typed IDs pass through database/sql directly.

func (id UserID) Value() (driver.Value, error)         { return uuid.UUID(id).String(), nil }
func (id PractitionerID) Value() (driver.Value, error) { return uuid.UUID(id).String(), nil }
func (id MemberStateID) Value() (driver.Value, error)  { return uuid.UUID(id).String(), nil }
func (id LicenseID) Value() (driver.Value, error)      { return uuid.UUID(id).String(), nil }
func (id DesignationID) Value() (driver.Value, error)  { return uuid.UUID(id).String(), nil }
func (id ApplicationID) Value() (driver.Value, error)  { return uuid.UUID(id).String(), nil }
func (id PrivilegeID) Value() (driver.Value, error)    { return uuid.UUID(id).String(), nil }

func (id *UserID) Scan(src any) error         { return (*uuid.UUID)(id).Scan(src) }
func (id *PractitionerID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *MemberStateID) Scan(src any) error  { return (*uuid.UUID)(id).Scan(src) }
func (id *LicenseID) Scan(src any) error      { return (*uuid.UUID)(id).Scan(src) }
func (id *DesignationID) Scan(src any) error  { return (*uuid.UUID)(id).Scan(src) }
func (id *ApplicationID) Scan(src any) error  { return (*uuid.UUID)(id).Scan(src) }
func (id *PrivilegeID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }

// parseUUID enforces the boundary invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid UUID", field)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be the nil UUID", field)
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s, "user id")
	return UserID(parsed), err
}

func ParsePractitionerID(s string) (PractitionerID, error) {
	parsed, err := parseUUID(s, "practitioner id")
	return PractitionerID(parsed), err
}

func ParseMemberStateID(s string) (MemberStateID, error) {
	parsed, err := parseUUID(s, "member state id")
	return MemberStateID(parsed), err
}

func ParseLicenseID(s string) (LicenseID, error) {
	parsed, err := parseUUID(s, "license id")
	return LicenseID(parsed), err
}

func ParseApplicationID(s string) (ApplicationID, error) {
	parsed, err := parseUUID(s, "application id")
	return ApplicationID(parsed), err
}
