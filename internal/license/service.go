package license

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"licensure/internal/audit"
	"licensure/internal/authz"
	"licensure/internal/identity"
	"licensure/internal/platform/metrics"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
	"licensure/pkg/platform/sentinel"
	"licensure/pkg/requestcontext"
)

// PractitionerDirectory is the slice of the identity module this service
// needs: resolving the practitioner aggregate behind a PA user.
type PractitionerDirectory interface {
	FindByUserID(ctx context.Context, userID domain.UserID) (identity.Practitioner, error)
}

// Service owns the license lifecycle and the qualifying designation rules.
// Every status transition consults the authorization policy first and writes
// its history row in the same transactional unit as the status itself.
type Service struct {
	licenses      Store
	designations  DesignationStore
	practitioners PractitionerDirectory
	trail         *audit.Trail
	txr           TxRunner
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(licenses Store, designations DesignationStore, practitioners PractitionerDirectory, trail *audit.Trail, txr TxRunner, opts ...Option) *Service {
	s := &Service{
		licenses:      licenses,
		designations:  designations,
		practitioners: practitioners,
		trail:         trail,
		txr:           txr,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddLicenseInput registers a license held by the acting practitioner.
// VerificationStatus is optional; it defaults to UNVERIFIED.
type AddLicenseInput struct {
	IssuingStateID     domain.MemberStateID
	LicenseNumber      string
	IssueDate          time.Time
	ExpirationDate     time.Time
	SelfReportedStatus SelfReportedStatus
	VerificationStatus VerificationStatus
	EvidenceURL        *string
}

// AddLicense creates the license UNVERIFIED (unless overridden) and appends
// the initial history entry. License numbers are not unique; a practitioner
// may register the same number twice.
func (s *Service) AddLicense(ctx context.Context, actor authz.Actor, input AddLicenseInput) (License, error) {
	if err := authz.Authorize(actor, authz.ActionCreateLicense, authz.Resource{}); err != nil {
		return License{}, err
	}

	practitioner, err := s.resolvePractitioner(ctx, actor.UserID)
	if err != nil {
		return License{}, err
	}

	if !input.SelfReportedStatus.Valid() {
		return License{}, dErrors.Newf(dErrors.CodeValidation, "invalid self-reported status %q", input.SelfReportedStatus)
	}
	status := input.VerificationStatus
	if status == "" {
		status = VerificationUnverified
	}
	if !status.Valid() {
		return License{}, dErrors.Newf(dErrors.CodeValidation, "invalid verification status %q", status)
	}

	now := requestcontext.Now(ctx)
	created := License{
		ID:                 domain.NewLicenseID(),
		PractitionerID:     practitioner.ID,
		IssuingStateID:     input.IssuingStateID,
		LicenseNumber:      input.LicenseNumber,
		IssueDate:          input.IssueDate,
		ExpirationDate:     input.ExpirationDate,
		SelfReportedStatus: input.SelfReportedStatus,
		VerificationStatus: status,
		EvidenceURL:        input.EvidenceURL,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.txr.RunInTx(ctx, practitioner.ID.String(), func(ctx context.Context) error {
		if err := s.licenses.Create(ctx, created); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create license")
		}
		return s.recordLicenseHistory(ctx, created.ID, status, "Initial creation", nil)
	})
	if err != nil {
		return License{}, err
	}

	if s.metrics != nil {
		s.metrics.LicensesCreated.Inc()
	}
	s.logger.InfoContext(ctx, "license created",
		"license_id", created.ID.String(),
		"practitioner_id", practitioner.ID.String(),
		"issuing_state_id", created.IssuingStateID.String(),
	)
	return created, nil
}

// VerifyLicenseInput carries a verification transition by the issuing
// jurisdiction's administrator.
type VerifyLicenseInput struct {
	LicenseID domain.LicenseID
	Status    VerificationStatus
	Note      string
}

// VerifyLicense overwrites the verification status unconditionally; any
// prior state may transition to any other, including VERIFIED back to
// UNVERIFIED. The actor and note land in the history row.
func (s *Service) VerifyLicense(ctx context.Context, actor authz.Actor, input VerifyLicenseInput) (License, error) {
	lic, err := s.GetLicenseByID(ctx, input.LicenseID)
	if err != nil {
		return License{}, err
	}

	if err := authz.Authorize(actor, authz.ActionVerifyLicense, authz.Resource{
		LicenseIssuingState: &lic.IssuingStateID,
	}); err != nil {
		return License{}, err
	}

	if !input.Status.Valid() {
		return License{}, dErrors.New(dErrors.CodeValidation, "Invalid verification status")
	}

	lic.VerificationStatus = input.Status
	lic.UpdatedAt = requestcontext.Now(ctx)
	actorID := actor.UserID

	err = s.txr.RunInTx(ctx, lic.PractitionerID.String(), func(ctx context.Context) error {
		if err := s.licenses.Update(ctx, lic); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update license")
		}
		return s.recordLicenseHistory(ctx, lic.ID, input.Status, input.Note, &actorID)
	})
	if err != nil {
		return License{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementLicenseVerified(string(input.Status))
	}
	s.logger.InfoContext(ctx, "license verified",
		"license_id", lic.ID.String(),
		"status", string(input.Status),
		"actor_user_id", actorID.String(),
	)
	return lic, nil
}

// GetLicensesParams scopes a listing to the caller. Status applies only to
// the state-admin review listing and defaults to UNVERIFIED.
type GetLicensesParams struct {
	Actor  authz.Actor
	Status VerificationStatus
}

// GetLicenses returns the practitioner's own licenses for PA callers and the
// issuing state's review queue for state admins, both ordered by expiration
// ascending.
func (s *Service) GetLicenses(ctx context.Context, params GetLicensesParams) ([]License, error) {
	actor := params.Actor
	switch actor.Role {
	case identity.RolePractitioner:
		if err := authz.Authorize(actor, authz.ActionListOwnLicenses, authz.Resource{}); err != nil {
			return nil, err
		}
		practitioner, err := s.resolvePractitioner(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return s.list(ctx, ListFilter{PractitionerID: practitioner.ID})

	case identity.RoleStateAdmin:
		if err := authz.Authorize(actor, authz.ActionReviewLicenses, authz.Resource{}); err != nil {
			return nil, err
		}
		status := params.Status
		if status == "" {
			status = VerificationUnverified
		}
		if !status.Valid() {
			return nil, dErrors.New(dErrors.CodeValidation, "Invalid status query param")
		}
		return s.list(ctx, ListFilter{IssuingStateID: *actor.MemberStateID, VerificationStatus: status})

	default:
		if !actor.Authenticated {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "Unauthorized")
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "Unauthorized")
	}
}

// GetLicenseByID fetches one license.
func (s *Service) GetLicenseByID(ctx context.Context, id domain.LicenseID) (License, error) {
	lic, err := s.licenses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return License{}, dErrors.New(dErrors.CodeNotFound, "License not found")
		}
		return License{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load license")
	}
	return lic, nil
}

// LicenseHistory returns the verification history, newest first.
func (s *Service) LicenseHistory(ctx context.Context, id domain.LicenseID) ([]audit.Entry, error) {
	return s.trail.History(ctx, audit.StreamLicense, uuid.UUID(id))
}

// DesignateInput designates a license as the practitioner's qualifying
// license. EffectiveFrom defaults to now, EffectiveTo to open-ended.
type DesignateInput struct {
	LicenseID     domain.LicenseID
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
}

// Designate archives any current ACTIVE designation and creates the new one
// as a single atomic unit, so concurrent calls for one practitioner can never
// leave two ACTIVE rows. The license must belong to the acting practitioner,
// be VERIFIED, and be unexpired.
func (s *Service) Designate(ctx context.Context, actor authz.Actor, input DesignateInput) (Designation, error) {
	if s.metrics != nil {
		defer s.metrics.ObserveDesignate(time.Now())
	}

	// Reject unauthenticated or wrong-role callers before resolving the
	// practitioner, so they never see a lookup error.
	if err := authz.Gate(actor, authz.ActionDesignateLicense); err != nil {
		return Designation{}, err
	}

	practitioner, err := s.resolvePractitioner(ctx, actor.UserID)
	if err != nil {
		return Designation{}, err
	}
	actor.PractitionerID = &practitioner.ID

	lic, err := s.GetLicenseByID(ctx, input.LicenseID)
	if err != nil {
		return Designation{}, err
	}

	now := requestcontext.Now(ctx)
	if err := authz.Authorize(actor, authz.ActionDesignateLicense, authz.Resource{
		LicenseOwner:     &lic.PractitionerID,
		LicenseVerified:  lic.VerificationStatus == VerificationVerified,
		LicenseExpiresAt: lic.ExpirationDate,
		Now:              now,
	}); err != nil {
		return Designation{}, err
	}

	effectiveFrom := now
	if input.EffectiveFrom != nil {
		effectiveFrom = *input.EffectiveFrom
	}

	created := Designation{
		ID:             domain.NewDesignationID(),
		PractitionerID: practitioner.ID,
		LicenseID:      lic.ID,
		EffectiveFrom:  effectiveFrom,
		EffectiveTo:    input.EffectiveTo,
		Status:         DesignationActive,
		CreatedAt:      now,
	}
	actorID := actor.UserID

	err = s.txr.RunInTx(ctx, practitioner.ID.String(), func(ctx context.Context) error {
		if err := s.archiveActiveDesignation(ctx, practitioner.ID, now, actorID); err != nil {
			return err
		}
		if err := s.designations.Create(ctx, created); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "Another designation was made concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create designation")
		}
		return s.recordDesignationHistory(ctx, created.ID, DesignationActive, "Initial designation", &actorID)
	})
	if err != nil {
		return Designation{}, err
	}

	if s.metrics != nil {
		s.metrics.DesignationsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "qualifying license designated",
		"designation_id", created.ID.String(),
		"license_id", lic.ID.String(),
		"practitioner_id", practitioner.ID.String(),
	)
	return created, nil
}

// archiveActiveDesignation retires the practitioner's current ACTIVE
// designation, if any. Must run inside the caller's transactional unit.
func (s *Service) archiveActiveDesignation(ctx context.Context, practitionerID domain.PractitionerID, now time.Time, actorID domain.UserID) error {
	existing, err := s.designations.FindActiveByPractitioner(ctx, practitionerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active designation")
	}

	existing.Status = DesignationArchived
	existing.EffectiveTo = &now
	if err := s.designations.Update(ctx, existing); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to archive designation")
	}
	return s.recordDesignationHistory(ctx, existing.ID, DesignationArchived,
		"Archived before new qualifying license designation", &actorID)
}

// ListDesignations returns the practitioner's designations, newest first.
func (s *Service) ListDesignations(ctx context.Context, practitionerID domain.PractitionerID) ([]Designation, error) {
	designations, err := s.designations.ListByPractitioner(ctx, practitionerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list designations")
	}
	return designations, nil
}

func (s *Service) list(ctx context.Context, filter ListFilter) ([]License, error) {
	licenses, err := s.licenses.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list licenses")
	}
	return licenses, nil
}

func (s *Service) resolvePractitioner(ctx context.Context, userID domain.UserID) (identity.Practitioner, error) {
	practitioner, err := s.practitioners.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return identity.Practitioner{}, dErrors.New(dErrors.CodeValidation, "Practitioner not found for user")
		}
		return identity.Practitioner{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load practitioner")
	}
	return practitioner, nil
}

func (s *Service) recordLicenseHistory(ctx context.Context, id domain.LicenseID, status VerificationStatus, note string, actor *domain.UserID) error {
	if err := s.trail.Record(ctx, audit.StreamLicense, uuid.UUID(id), string(status), note, actor); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append license history")
	}
	return nil
}

func (s *Service) recordDesignationHistory(ctx context.Context, id domain.DesignationID, status DesignationStatus, reason string, actor *domain.UserID) error {
	if err := s.trail.Record(ctx, audit.StreamDesignation, uuid.UUID(id), string(status), reason, actor); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append designation history")
	}
	return nil
}
