package audit

import (
	"time"

	"github.com/google/uuid"

	"licensure/pkg/domain"
)

// Stream identifies which entity's history an entry belongs to. Every
// status-bearing entity gets its own stream.
type Stream string

const (
	StreamLicense     Stream = "license_status"
	StreamDesignation Stream = "designation_status"
	StreamApplication Stream = "application_status"
	StreamPrivilege   Stream = "privilege_status"
)

// Entry is one immutable history row. Entries are appended in the same
// atomic unit as the status write they record and are never updated or
// deleted.
type Entry struct {
	ID          uuid.UUID
	Stream      Stream
	EntityID    uuid.UUID
	Status      string
	Reason      string
	ActorUserID *domain.UserID
	CreatedAt   time.Time
}
