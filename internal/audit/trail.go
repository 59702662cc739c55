package audit

import (
	"context"

	"github.com/google/uuid"

	"licensure/pkg/domain"
	"licensure/pkg/requestcontext"
)

// Store persists history entries. Implementations must preserve append order;
// List returns newest first.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, stream Stream, entityID uuid.UUID) ([]Entry, error)
}

// Trail writes the append-only history record for every status transition.
// It is storage-driven so tests can swap sinks easily; callers invoke Record
// inside the same transactional unit as the status write itself.
type Trail struct {
	store Store
}

func NewTrail(store Store) *Trail {
	return &Trail{store: store}
}

// Record appends one entry for a status transition. The entry timestamp is
// the request-scoped instant so a transition and its audit row agree.
func (t *Trail) Record(ctx context.Context, stream Stream, entityID uuid.UUID, status, reason string, actor *domain.UserID) error {
	return t.store.Append(ctx, Entry{
		ID:          uuid.New(),
		Stream:      stream,
		EntityID:    entityID,
		Status:      status,
		Reason:      reason,
		ActorUserID: actor,
		CreatedAt:   requestcontext.Now(ctx),
	})
}

// History returns an entity's entries, newest first.
func (t *Trail) History(ctx context.Context, stream Stream, entityID uuid.UUID) ([]Entry, error) {
	return t.store.List(ctx, stream, entityID)
}
