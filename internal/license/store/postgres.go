package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"licensure/internal/license"
	"licensure/pkg/domain"
	"licensure/pkg/platform/sentinel"
	txcontext "licensure/pkg/platform/tx"
)

// PostgresLicenseStore persists licenses in the licenses table. Writes join
// the surrounding SQL transaction when one is carried in the context.
type PostgresLicenseStore struct {
	db *sql.DB
}

func NewPostgresLicenseStore(db *sql.DB) *PostgresLicenseStore {
	return &PostgresLicenseStore{db: db}
}

func (s *PostgresLicenseStore) querier(ctx context.Context) txcontext.Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const licenseColumns = `id, practitioner_id, issuing_state_id, license_number, issue_date,
	expiration_date, self_reported_status, verification_status, evidence_url, created_at, updated_at`

func (s *PostgresLicenseStore) Create(ctx context.Context, lic license.License) error {
	query := `
		INSERT INTO licenses (` + licenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		lic.ID, lic.PractitionerID, lic.IssuingStateID, lic.LicenseNumber, lic.IssueDate,
		lic.ExpirationDate, string(lic.SelfReportedStatus), string(lic.VerificationStatus),
		lic.EvidenceURL, lic.CreatedAt, lic.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert license: %w", err)
	}
	return nil
}

func (s *PostgresLicenseStore) FindByID(ctx context.Context, id domain.LicenseID) (license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	lic, err := scanLicense(s.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return license.License{}, sentinel.ErrNotFound
		}
		return license.License{}, fmt.Errorf("find license: %w", err)
	}
	return lic, nil
}

func (s *PostgresLicenseStore) Update(ctx context.Context, lic license.License) error {
	query := `
		UPDATE licenses
		SET self_reported_status = $2, verification_status = $3, evidence_url = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		lic.ID, string(lic.SelfReportedStatus), string(lic.VerificationStatus), lic.EvidenceURL, lic.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update license: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update license: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresLicenseStore) List(ctx context.Context, filter license.ListFilter) ([]license.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE 1=1`
	args := make([]any, 0, 3)
	if !filter.PractitionerID.IsNil() {
		args = append(args, filter.PractitionerID)
		query += fmt.Sprintf(" AND practitioner_id = $%d", len(args))
	}
	if !filter.IssuingStateID.IsNil() {
		args = append(args, filter.IssuingStateID)
		query += fmt.Sprintf(" AND issuing_state_id = $%d", len(args))
	}
	if filter.VerificationStatus != "" {
		args = append(args, string(filter.VerificationStatus))
		query += fmt.Sprintf(" AND verification_status = $%d", len(args))
	}
	query += " ORDER BY expiration_date ASC"

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]license.License, 0)
	for rows.Next() {
		lic, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		licenses = append(licenses, lic)
	}
	return licenses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLicense(row rowScanner) (license.License, error) {
	var (
		lic          license.License
		selfReported string
		verification string
	)
	err := row.Scan(&lic.ID, &lic.PractitionerID, &lic.IssuingStateID, &lic.LicenseNumber,
		&lic.IssueDate, &lic.ExpirationDate, &selfReported, &verification,
		&lic.EvidenceURL, &lic.CreatedAt, &lic.UpdatedAt)
	if err != nil {
		return license.License{}, err
	}
	lic.SelfReportedStatus = license.SelfReportedStatus(selfReported)
	lic.VerificationStatus = license.VerificationStatus(verification)
	return lic, nil
}

// PostgresDesignationStore persists qualifying designations.
type PostgresDesignationStore struct {
	db *sql.DB
}

func NewPostgresDesignationStore(db *sql.DB) *PostgresDesignationStore {
	return &PostgresDesignationStore{db: db}
}

func (s *PostgresDesignationStore) querier(ctx context.Context) txcontext.Querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const designationColumns = `id, practitioner_id, license_id, effective_from, effective_to, status, created_at`

func (s *PostgresDesignationStore) Create(ctx context.Context, d license.Designation) error {
	query := `
		INSERT INTO qualifying_designations (` + designationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		d.ID, d.PractitionerID, d.LicenseID, d.EffectiveFrom, d.EffectiveTo, string(d.Status), d.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert designation: %w", err)
	}
	return nil
}

func (s *PostgresDesignationStore) Update(ctx context.Context, d license.Designation) error {
	query := `
		UPDATE qualifying_designations
		SET effective_from = $2, effective_to = $3, status = $4
		WHERE id = $1
	`
	res, err := s.querier(ctx).ExecContext(ctx, query,
		d.ID, d.EffectiveFrom, d.EffectiveTo, string(d.Status))
	if err != nil {
		return fmt.Errorf("update designation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update designation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresDesignationStore) FindActiveByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) (license.Designation, error) {
	query := `
		SELECT ` + designationColumns + `
		FROM qualifying_designations
		WHERE practitioner_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	// Inside a transaction, lock the row so a concurrent designate waits for
	// the archive-and-replace to commit instead of reading the stale ACTIVE.
	if _, inTx := txcontext.From(ctx); inTx {
		query += " FOR UPDATE"
	}
	d, err := scanDesignation(s.querier(ctx).QueryRowContext(ctx, query, practitionerID, string(license.DesignationActive)))
	if err != nil {
		if err == sql.ErrNoRows {
			return license.Designation{}, sentinel.ErrNotFound
		}
		return license.Designation{}, fmt.Errorf("find active designation: %w", err)
	}
	return d, nil
}

func (s *PostgresDesignationStore) ListByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) ([]license.Designation, error) {
	query := `
		SELECT ` + designationColumns + `
		FROM qualifying_designations
		WHERE practitioner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.querier(ctx).QueryContext(ctx, query, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("list designations: %w", err)
	}
	defer rows.Close()

	designations := make([]license.Designation, 0)
	for rows.Next() {
		d, err := scanDesignation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan designation: %w", err)
		}
		designations = append(designations, d)
	}
	return designations, rows.Err()
}

func scanDesignation(row rowScanner) (license.Designation, error) {
	var (
		d      license.Designation
		status string
	)
	err := row.Scan(&d.ID, &d.PractitionerID, &d.LicenseID, &d.EffectiveFrom, &d.EffectiveTo, &status, &d.CreatedAt)
	if err != nil {
		return license.Designation{}, err
	}
	d.Status = license.DesignationStatus(status)
	return d, nil
}
