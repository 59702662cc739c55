package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "licensure/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// IDs must be valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseLicenseID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseLicenseID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseLicenseID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseLicenseID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, LicenseID(validUUID), id)
	})
}

func TestParseID_FieldNames(t *testing.T) {
	cases := []struct {
		name  string
		parse func(string) error
		want  string
	}{
		{"user", func(s string) error { _, err := ParseUserID(s); return err }, "user id is required"},
		{"practitioner", func(s string) error { _, err := ParsePractitionerID(s); return err }, "practitioner id is required"},
		{"member state", func(s string) error { _, err := ParseMemberStateID(s); return err }, "member state id is required"},
		{"application", func(s string) error { _, err := ParseApplicationID(s); return err }, "application id is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.parse("")
			require.Error(t, err)
			assert.Equal(t, tc.want, dErrors.MessageOf(err))
		})
	}
}

// TestTypeDistinction verifies the compiler enforces type safety between
// entity identifiers.
func TestTypeDistinction(t *testing.T) {
	licenseID := LicenseID(uuid.New())
	applicationID := ApplicationID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ LicenseID = applicationID   // compile error
	// var _ ApplicationID = licenseID   // compile error

	assert.NotEqual(t, uuid.UUID(licenseID), uuid.UUID(applicationID))
}
