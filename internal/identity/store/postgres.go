package store

import (
	"context"
	"database/sql"
	"fmt"

	"licensure/internal/identity"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
	txcontext "licensure/pkg/platform/tx"
)

// PostgresUserStore persists accounts. The service normalizes emails to
// lowercase before storing, so the unique constraint on email catches
// duplicates regardless of the caller's casing.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func querier(ctx context.Context, db *sql.DB) txcontext.Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

const userColumns = `id, email, first_name, last_name, role, member_state_id, created_at, updated_at`

func (s *PostgresUserStore) Create(ctx context.Context, user identity.User, passwordHash string) error {
	query := `
		INSERT INTO users (` + userColumns + `, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := querier(ctx, s.db).ExecContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, string(user.Role),
		user.MemberStateID, user.CreatedAt, user.UpdatedAt, passwordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id domain.UserID) (identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(querier(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return identity.User{}, sentinel.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	user, err := scanUser(querier(ctx, s.db).QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return identity.User{}, sentinel.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) FindByEmailWithPassword(ctx context.Context, email string) (identity.User, string, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = lower($1)`
	row := querier(ctx, s.db).QueryRowContext(ctx, query, email)

	var (
		user identity.User
		role string
		hash string
	)
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &role,
		&user.MemberStateID, &user.CreatedAt, &user.UpdatedAt, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return identity.User{}, "", sentinel.ErrNotFound
		}
		return identity.User{}, "", fmt.Errorf("find user with password: %w", err)
	}
	user.Role = identity.Role(role)
	return user, hash, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (identity.User, error) {
	var (
		user identity.User
		role string
	)
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &role,
		&user.MemberStateID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return identity.User{}, err
	}
	user.Role = identity.Role(role)
	return user, nil
}

// PostgresPractitionerStore persists practitioner aggregates; the name search
// joins users the same way the in-memory store resolves names.
type PostgresPractitionerStore struct {
	db *sql.DB
}

func NewPostgresPractitionerStore(db *sql.DB) *PostgresPractitionerStore {
	return &PostgresPractitionerStore{db: db}
}

func (s *PostgresPractitionerStore) Create(ctx context.Context, practitioner identity.Practitioner) error {
	query := `
		INSERT INTO practitioners (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := querier(ctx, s.db).ExecContext(ctx, query,
		practitioner.ID, practitioner.UserID, practitioner.CreatedAt, practitioner.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert practitioner: %w", err)
	}
	return nil
}

func (s *PostgresPractitionerStore) FindByID(ctx context.Context, id domain.PractitionerID) (identity.Practitioner, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM practitioners WHERE id = $1`
	return s.scanOne(querier(ctx, s.db).QueryRowContext(ctx, query, id))
}

func (s *PostgresPractitionerStore) FindByUserID(ctx context.Context, userID domain.UserID) (identity.Practitioner, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM practitioners WHERE user_id = $1`
	return s.scanOne(querier(ctx, s.db).QueryRowContext(ctx, query, userID))
}

func (s *PostgresPractitionerStore) scanOne(row rowScanner) (identity.Practitioner, error) {
	var p identity.Practitioner
	err := row.Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return identity.Practitioner{}, sentinel.ErrNotFound
		}
		return identity.Practitioner{}, fmt.Errorf("find practitioner: %w", err)
	}
	return p, nil
}

func (s *PostgresPractitionerStore) SearchByName(ctx context.Context, name string, limit int) ([]identity.PractitionerProfile, error) {
	query := `
		SELECT p.id, p.user_id, p.created_at, p.updated_at, u.email, u.first_name, u.last_name
		FROM practitioners p
		JOIN users u ON u.id = p.user_id
		WHERE u.first_name LIKE '%' || $1 || '%' OR u.last_name LIKE '%' || $1 || '%'
		ORDER BY u.first_name ASC
	`
	args := []any{name}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := querier(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search practitioners: %w", err)
	}
	defer rows.Close()

	profiles := make([]identity.PractitionerProfile, 0)
	for rows.Next() {
		var profile identity.PractitionerProfile
		err := rows.Scan(&profile.Practitioner.ID, &profile.Practitioner.UserID,
			&profile.Practitioner.CreatedAt, &profile.Practitioner.UpdatedAt,
			&profile.UserEmail, &profile.FirstName, &profile.LastName)
		if err != nil {
			return nil, fmt.Errorf("scan practitioner profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
