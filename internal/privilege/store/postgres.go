package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"licensure/internal/privilege"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
	txcontext "licensure/pkg/platform/tx"
)

// Postgres stores join the surrounding SQL transaction when one is carried in
// the context, so a status write and its history row commit together.

type PostgresApplicationStore struct {
	db *sql.DB
}

func NewPostgresApplicationStore(db *sql.DB) *PostgresApplicationStore {
	return &PostgresApplicationStore{db: db}
}

func querier(ctx context.Context, db *sql.DB) txcontext.Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

const applicationColumns = `id, practitioner_id, remote_state_id, qualifying_license_id, status,
	applicant_note, reviewer_note, created_at, updated_at`

func (s *PostgresApplicationStore) Create(ctx context.Context, app privilege.Application) error {
	query := `
		INSERT INTO privilege_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := querier(ctx, s.db).ExecContext(ctx, query,
		app.ID, app.PractitionerID, app.RemoteStateID, app.QualifyingLicenseID, string(app.Status),
		app.ApplicantNote, app.ReviewerNote, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresApplicationStore) FindByID(ctx context.Context, id domain.ApplicationID) (privilege.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM privilege_applications WHERE id = $1`
	app, err := scanApplication(querier(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return privilege.Application{}, sentinel.ErrNotFound
		}
		return privilege.Application{}, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func (s *PostgresApplicationStore) Update(ctx context.Context, app privilege.Application) error {
	query := `
		UPDATE privilege_applications
		SET status = $2, applicant_note = $3, reviewer_note = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := querier(ctx, s.db).ExecContext(ctx, query,
		app.ID, string(app.Status), app.ApplicantNote, app.ReviewerNote, app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresApplicationStore) ListByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) ([]privilege.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM privilege_applications
		WHERE practitioner_id = $1
		ORDER BY created_at DESC
	`
	return s.queryApplications(ctx, query, practitionerID)
}

func (s *PostgresApplicationStore) ListByRemoteState(ctx context.Context, stateID domain.MemberStateID, status privilege.ApplicationStatus) ([]privilege.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM privilege_applications
		WHERE remote_state_id = $1
	`
	args := []any{stateID}
	if status != "" {
		args = append(args, string(status))
		query += " AND status = $2"
	}
	query += " ORDER BY created_at DESC"
	return s.queryApplications(ctx, query, args...)
}

func (s *PostgresApplicationStore) queryApplications(ctx context.Context, query string, args ...any) ([]privilege.Application, error) {
	rows, err := querier(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	applications := make([]privilege.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		applications = append(applications, app)
	}
	return applications, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (privilege.Application, error) {
	var (
		app    privilege.Application
		status string
	)
	err := row.Scan(&app.ID, &app.PractitionerID, &app.RemoteStateID, &app.QualifyingLicenseID,
		&status, &app.ApplicantNote, &app.ReviewerNote, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return privilege.Application{}, err
	}
	app.Status = privilege.ApplicationStatus(status)
	return app, nil
}

type PostgresAttestationStore struct {
	db *sql.DB
}

func NewPostgresAttestationStore(db *sql.DB) *PostgresAttestationStore {
	return &PostgresAttestationStore{db: db}
}

func (s *PostgresAttestationStore) Create(ctx context.Context, attestation privilege.Attestation) error {
	query := `
		INSERT INTO attestations (id, application_id, type, accepted, accepted_at, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := querier(ctx, s.db).ExecContext(ctx, query,
		attestation.ID, attestation.ApplicationID, attestation.Type, attestation.Accepted,
		attestation.AcceptedAt, attestation.Text, attestation.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attestation: %w", err)
	}
	return nil
}

func (s *PostgresAttestationStore) ListByApplication(ctx context.Context, applicationID domain.ApplicationID) ([]privilege.Attestation, error) {
	query := `
		SELECT id, application_id, type, accepted, accepted_at, text, created_at
		FROM attestations
		WHERE application_id = $1
		ORDER BY created_at ASC
	`
	rows, err := querier(ctx, s.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list attestations: %w", err)
	}
	defer rows.Close()

	attestations := make([]privilege.Attestation, 0)
	for rows.Next() {
		var a privilege.Attestation
		if err := rows.Scan(&a.ID, &a.ApplicationID, &a.Type, &a.Accepted, &a.AcceptedAt, &a.Text, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attestation: %w", err)
		}
		attestations = append(attestations, a)
	}
	return attestations, rows.Err()
}

// PostgresPaymentStore relies on a unique index on application_id; the upsert
// is a single statement so concurrent payments cannot create a second row.
type PostgresPaymentStore struct {
	db *sql.DB
}

func NewPostgresPaymentStore(db *sql.DB) *PostgresPaymentStore {
	return &PostgresPaymentStore{db: db}
}

func (s *PostgresPaymentStore) Upsert(ctx context.Context, payment privilege.PaymentTransaction) (privilege.PaymentTransaction, error) {
	query := `
		INSERT INTO payment_transactions (id, application_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE
		SET amount = EXCLUDED.amount, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING id, application_id, amount, status, created_at, updated_at
	`
	stored, err := scanPayment(querier(ctx, s.db).QueryRowContext(ctx, query,
		payment.ID, payment.ApplicationID, payment.Amount, string(payment.Status),
		payment.CreatedAt, payment.UpdatedAt))
	if err != nil {
		return privilege.PaymentTransaction{}, fmt.Errorf("upsert payment: %w", err)
	}
	return stored, nil
}

func (s *PostgresPaymentStore) FindByApplication(ctx context.Context, applicationID domain.ApplicationID) (privilege.PaymentTransaction, error) {
	query := `
		SELECT id, application_id, amount, status, created_at, updated_at
		FROM payment_transactions
		WHERE application_id = $1
	`
	payment, err := scanPayment(querier(ctx, s.db).QueryRowContext(ctx, query, applicationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return privilege.PaymentTransaction{}, sentinel.ErrNotFound
		}
		return privilege.PaymentTransaction{}, fmt.Errorf("find payment: %w", err)
	}
	return payment, nil
}

func scanPayment(row rowScanner) (privilege.PaymentTransaction, error) {
	var (
		payment privilege.PaymentTransaction
		id      uuid.UUID
		status  string
	)
	err := row.Scan(&id, &payment.ApplicationID, &payment.Amount, &status, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return privilege.PaymentTransaction{}, err
	}
	payment.ID = id
	payment.Status = privilege.PaymentStatus(status)
	return payment, nil
}

type PostgresPrivilegeStore struct {
	db *sql.DB
}

func NewPostgresPrivilegeStore(db *sql.DB) *PostgresPrivilegeStore {
	return &PostgresPrivilegeStore{db: db}
}

const privilegeColumns = `id, practitioner_id, remote_state_id, application_id, qualifying_license_id,
	status, issued_at, expires_at, created_at`

func (s *PostgresPrivilegeStore) Create(ctx context.Context, p privilege.Privilege) error {
	query := `
		INSERT INTO privileges (` + privilegeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := querier(ctx, s.db).ExecContext(ctx, query,
		p.ID, p.PractitionerID, p.RemoteStateID, p.ApplicationID, p.QualifyingLicenseID,
		string(p.Status), p.IssuedAt, p.ExpiresAt, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert privilege: %w", err)
	}
	return nil
}

func (s *PostgresPrivilegeStore) ListByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) ([]privilege.Privilege, error) {
	query := `
		SELECT ` + privilegeColumns + `
		FROM privileges
		WHERE practitioner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := querier(ctx, s.db).QueryContext(ctx, query, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("list privileges: %w", err)
	}
	defer rows.Close()

	privileges := make([]privilege.Privilege, 0)
	for rows.Next() {
		var (
			p      privilege.Privilege
			status string
		)
		if err := rows.Scan(&p.ID, &p.PractitionerID, &p.RemoteStateID, &p.ApplicationID,
			&p.QualifyingLicenseID, &status, &p.IssuedAt, &p.ExpiresAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan privilege: %w", err)
		}
		p.Status = privilege.PrivilegeStatus(status)
		privileges = append(privileges, p)
	}
	return privileges, rows.Err()
}
