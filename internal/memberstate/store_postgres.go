package memberstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const memberStateColumns = "id, code, name, is_active, created_at, updated_at"

func (s *PostgresStore) Create(ctx context.Context, state MemberState) error {
	query := `
		INSERT INTO member_states (id, code, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		state.ID.String(), state.Code, state.Name, state.IsActive, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create member state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create member state: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.MemberStateID) (MemberState, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberStateColumns+" FROM member_states WHERE id = $1", id.String())
	return scanMemberState(row)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (MemberState, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberStateColumns+" FROM member_states WHERE upper(code) = upper($1)", code)
	return scanMemberState(row)
}

func (s *PostgresStore) List(ctx context.Context, includeInactive bool) ([]MemberState, error) {
	query := "SELECT " + memberStateColumns + " FROM member_states"
	if !includeInactive {
		query += " WHERE is_active"
	}
	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list member states: %w", err)
	}
	defer rows.Close()

	var states []MemberState
	for rows.Next() {
		state, err := scanMemberState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemberState(row rowScanner) (MemberState, error) {
	var state MemberState
	err := row.Scan(&state.ID, &state.Code, &state.Name, &state.IsActive, &state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MemberState{}, sentinel.ErrNotFound
	}
	if err != nil {
		return MemberState{}, fmt.Errorf("scan member state: %w", err)
	}
	return state, nil
}
