package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"licensure/pkg/domain"
	txcontext "licensure/pkg/platform/tx"
)

// PostgresStore persists history rows in a single audit_entries table keyed
// by stream. Appends join the surrounding SQL transaction when one is carried
// in the context, so a status write and its history row commit together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) querier(ctx context.Context) txcontext.Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO audit_entries (id, stream, entity_id, status, reason, actor_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var actor any
	if entry.ActorUserID != nil {
		actor = entry.ActorUserID.String()
	}
	_, err := s.querier(ctx).ExecContext(ctx, query,
		entry.ID, string(entry.Stream), entry.EntityID, entry.Status, entry.Reason, actor, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, stream Stream, entityID uuid.UUID) ([]Entry, error) {
	query := `
		SELECT id, stream, entity_id, status, reason, actor_user_id, created_at
		FROM audit_entries
		WHERE stream = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, string(stream), entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			streamRaw string
			actorRaw  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &streamRaw, &entry.EntityID, &entry.Status, &entry.Reason, &actorRaw, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Stream = Stream(streamRaw)
		if actorRaw.Valid {
			parsed, err := uuid.Parse(actorRaw.String)
			if err != nil {
				return nil, fmt.Errorf("parse actor id: %w", err)
			}
			actorID := domain.UserID(parsed)
			entry.ActorUserID = &actorID
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
