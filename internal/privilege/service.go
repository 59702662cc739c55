package privilege

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"licensure/internal/audit"
	"licensure/internal/authz"
	"licensure/internal/identity"
	"licensure/internal/license"
	"licensure/internal/memberstate"
	"licensure/internal/platform/metrics"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
	"licensure/pkg/platform/sentinel"
	"licensure/pkg/requestcontext"
)

const searchLimit = 25

// PractitionerDirectory is the slice of the identity module this service
// needs.
type PractitionerDirectory interface {
	FindByID(ctx context.Context, id domain.PractitionerID) (identity.Practitioner, error)
	FindByUserID(ctx context.Context, userID domain.UserID) (identity.Practitioner, error)
	SearchByName(ctx context.Context, name string, limit int) ([]identity.PractitionerProfile, error)
}

// DesignationReader resolves a practitioner's active qualifying designation.
type DesignationReader interface {
	FindActiveByPractitioner(ctx context.Context, practitionerID domain.PractitionerID) (license.Designation, error)
}

// LicenseReader loads the license behind a designation.
type LicenseReader interface {
	FindByID(ctx context.Context, id domain.LicenseID) (license.License, error)
}

// StateReader resolves member states by code for search filtering.
type StateReader interface {
	FindByCode(ctx context.Context, code string) (memberstate.MemberState, error)
}

// Service owns the privilege application workflow: submission, payment
// recording, determination and privilege issuance, plus the public
// practitioner search.
type Service struct {
	applications  ApplicationStore
	attestations  AttestationStore
	payments      PaymentStore
	privileges    PrivilegeStore
	practitioners PractitionerDirectory
	designations  DesignationReader
	licenses      LicenseReader
	states        StateReader
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

type Deps struct {
	Applications  ApplicationStore
	Attestations  AttestationStore
	Payments      PaymentStore
	Privileges    PrivilegeStore
	Practitioners PractitionerDirectory
	Designations  DesignationReader
	Licenses      LicenseReader
	States        StateReader
	Trail         *audit.Trail
	TxRunner      TxRunner
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		applications:  deps.Applications,
		attestations:  deps.Attestations,
		payments:      deps.Payments,
		privileges:    deps.Privileges,
		practitioners: deps.Practitioners,
		designations:  deps.Designations,
		licenses:      deps.Licenses,
		states:        deps.States,
		trail:         deps.Trail,
		txr:           deps.TxRunner,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyInput submits an application for practice in a remote member state.
// The practitioner is taken from the request, not from the actor; only the
// PA role is required.
type ApplyInput struct {
	PractitionerID      domain.PractitionerID
	RemoteStateID       domain.MemberStateID
	QualifyingLicenseID domain.LicenseID
	AttestationType     string
	AttestationAccepted bool
	AttestationText     *string
	ApplicantNote       *string
}

// Apply creates the application SUBMITTED, captures the attestation, and
// appends the submission history row, all in one atomic unit.
func (s *Service) Apply(ctx context.Context, actor authz.Actor, input ApplyInput) (Application, error) {
	if err := authz.Authorize(actor, authz.ActionApplyPrivilege, authz.Resource{}); err != nil {
		return Application{}, err
	}

	if _, err := s.practitioners.FindByID(ctx, input.PractitionerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Application{}, dErrors.New(dErrors.CodeValidation, "Practitioner not found")
		}
		return Application{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load practitioner")
	}

	now := requestcontext.Now(ctx)
	app := Application{
		ID:                  domain.NewApplicationID(),
		PractitionerID:      input.PractitionerID,
		RemoteStateID:       input.RemoteStateID,
		QualifyingLicenseID: input.QualifyingLicenseID,
		Status:              ApplicationSubmitted,
		ApplicantNote:       input.ApplicantNote,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	attestation := Attestation{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		Type:          input.AttestationType,
		Accepted:      input.AttestationAccepted,
		Text:          input.AttestationText,
		CreatedAt:     now,
	}
	if input.AttestationAccepted {
		acceptedAt := now
		attestation.AcceptedAt = &acceptedAt
	}
	actorID := actor.UserID

	err := s.txr.RunInTx(ctx, app.ID.String(), func(ctx context.Context) error {
		if err := s.applications.Create(ctx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
		}
		if err := s.attestations.Create(ctx, attestation); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create attestation")
		}
		return s.recordApplicationHistory(ctx, app.ID, ApplicationSubmitted, "Application submitted", &actorID)
	})
	if err != nil {
		return Application{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementApplicationStatus(string(ApplicationSubmitted))
	}
	s.logger.InfoContext(ctx, "privilege application submitted",
		"application_id", app.ID.String(),
		"practitioner_id", app.PractitionerID.String(),
		"remote_state_id", app.RemoteStateID.String(),
	)
	return app, nil
}

// RecordPayment upserts the application's payment transaction as PAID and
// unconditionally advances the application to UNDER_REVIEW, regardless of its
// current status. Calling it twice updates the amount in place; the row count
// stays one.
func (s *Service) RecordPayment(ctx context.Context, actor authz.Actor, applicationID domain.ApplicationID, amount int64) (Application, error) {
	if err := authz.Authorize(actor, authz.ActionRecordPayment, authz.Resource{}); err != nil {
		return Application{}, err
	}

	app, err := s.findApplication(ctx, applicationID)
	if err != nil {
		return Application{}, err
	}

	now := requestcontext.Now(ctx)
	app.Status = ApplicationUnderReview
	app.UpdatedAt = now
	actorID := actor.UserID

	err = s.txr.RunInTx(ctx, app.ID.String(), func(ctx context.Context) error {
		_, err := s.payments.Upsert(ctx, PaymentTransaction{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			Amount:        amount,
			Status:        PaymentPaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
		}
		if err := s.applications.Update(ctx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update application")
		}
		return s.recordApplicationHistory(ctx, app.ID, ApplicationUnderReview, "Payment received", &actorID)
	})
	if err != nil {
		return Application{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementApplicationStatus(string(ApplicationUnderReview))
	}
	s.logger.InfoContext(ctx, "payment recorded",
		"application_id", app.ID.String(),
		"amount", amount,
	)
	return app, nil
}

// DetermineInput records a state admin's decision on an application.
type DetermineInput struct {
	ApplicationID domain.ApplicationID
	Status        ApplicationStatus
	ExpiresAt     *time.Time
	ReviewerNote  *string
}

// Determination is the outcome of a review. Privilege is nil on denial.
type Determination struct {
	Application Application
	Privilege   *Privilege
}

// Determine moves an application to APPROVED or DENIED. Approval issues the
// privilege in the same atomic unit as the status change.
func (s *Service) Determine(ctx context.Context, actor authz.Actor, input DetermineInput) (Determination, error) {
	if s.metrics != nil {
		defer s.metrics.ObserveDetermine(time.Now())
	}

	if err := authz.Authorize(actor, authz.ActionDetermineApplication, authz.Resource{}); err != nil {
		return Determination{}, err
	}

	if input.Status != ApplicationApproved && input.Status != ApplicationDenied {
		return Determination{}, dErrors.New(dErrors.CodeInvalidTransition, "Status must be APPROVED or DENIED")
	}

	app, err := s.findApplication(ctx, input.ApplicationID)
	if err != nil {
		return Determination{}, err
	}

	now := requestcontext.Now(ctx)
	app.Status = input.Status
	app.UpdatedAt = now
	if input.ReviewerNote != nil {
		app.ReviewerNote = input.ReviewerNote
	}
	actorID := actor.UserID

	var issued *Privilege
	if input.Status == ApplicationApproved {
		issued = &Privilege{
			ID:                  domain.NewPrivilegeID(),
			PractitionerID:      app.PractitionerID,
			RemoteStateID:       app.RemoteStateID,
			ApplicationID:       app.ID,
			QualifyingLicenseID: app.QualifyingLicenseID,
			Status:              PrivilegeActive,
			IssuedAt:            now,
			ExpiresAt:           input.ExpiresAt,
			CreatedAt:           now,
		}
	}

	err = s.txr.RunInTx(ctx, app.ID.String(), func(ctx context.Context) error {
		if err := s.applications.Update(ctx, app); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update application")
		}
		if err := s.recordApplicationHistory(ctx, app.ID, input.Status, "Application reviewed", &actorID); err != nil {
			return err
		}
		if issued == nil {
			return nil
		}
		if err := s.privileges.Create(ctx, *issued); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create privilege")
		}
		if err := s.trail.Record(ctx, audit.StreamPrivilege, uuid.UUID(issued.ID), string(PrivilegeActive), "Privilege issued", &actorID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append privilege history")
		}
		return nil
	})
	if err != nil {
		return Determination{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementApplicationStatus(string(input.Status))
		if issued != nil {
			s.metrics.PrivilegesIssued.Inc()
		}
	}
	s.logger.InfoContext(ctx, "application determined",
		"application_id", app.ID.String(),
		"status", string(input.Status),
		"actor_user_id", actorID.String(),
	)
	return Determination{Application: app, Privilege: issued}, nil
}

// ListPrivileges returns the acting practitioner's privileges, newest first.
func (s *Service) ListPrivileges(ctx context.Context, actor authz.Actor) ([]Privilege, error) {
	if err := authz.Authorize(actor, authz.ActionListOwnPrivileges, authz.Resource{}); err != nil {
		return nil, err
	}
	practitioner, err := s.resolvePractitioner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	privileges, err := s.privileges.ListByPractitioner(ctx, practitioner.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list privileges")
	}
	return privileges, nil
}

// ListApplications returns the acting practitioner's applications, newest
// first.
func (s *Service) ListApplications(ctx context.Context, actor authz.Actor) ([]Application, error) {
	if err := authz.Authorize(actor, authz.ActionListOwnApplications, authz.Resource{}); err != nil {
		return nil, err
	}
	practitioner, err := s.resolvePractitioner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	applications, err := s.applications.ListByPractitioner(ctx, practitioner.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return applications, nil
}

// ListApplicationsForState returns the review queue for the admin's member
// state, optionally filtered by status.
func (s *Service) ListApplicationsForState(ctx context.Context, actor authz.Actor, status ApplicationStatus) ([]Application, error) {
	if err := authz.Authorize(actor, authz.ActionReviewApplications, authz.Resource{}); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "Invalid status query param")
	}
	applications, err := s.applications.ListByRemoteState(ctx, *actor.MemberStateID, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return applications, nil
}

// SearchInput filters the public practitioner directory.
type SearchInput struct {
	Name            string
	QualifyingState string
}

// Search matches practitioners by name substring (case-sensitive) who hold an
// ACTIVE qualifying designation, optionally restricted to licenses issued by
// the named state (code, case-insensitive). A blank name short-circuits to an
// empty result without touching storage.
func (s *Service) Search(ctx context.Context, input SearchInput) ([]SearchResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return []SearchResult{}, nil
	}

	var stateFilter *domain.MemberStateID
	if code := strings.TrimSpace(input.QualifyingState); code != "" {
		state, err := s.states.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return []SearchResult{}, nil
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve state code")
		}
		stateFilter = &state.ID
	}

	// The cap applies to fully filtered results, so name matches that lack a
	// designation must not consume slots. Fetch every match and stop once
	// enough survive the filters.
	profiles, err := s.practitioners.SearchByName(ctx, name, 0)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search practitioners")
	}

	results := make([]SearchResult, 0, len(profiles))
	for _, profile := range profiles {
		if len(results) == searchLimit {
			break
		}
		designation, err := s.designations.FindActiveByPractitioner(ctx, profile.Practitioner.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load designation")
		}

		lic, err := s.licenses.FindByID(ctx, designation.LicenseID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load qualifying license")
		}
		if stateFilter != nil && lic.IssuingStateID != *stateFilter {
			continue
		}

		privileges, err := s.privileges.ListByPractitioner(ctx, profile.Practitioner.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list privileges")
		}

		results = append(results, SearchResult{
			Practitioner:      profile,
			QualifyingLicense: lic,
			Privileges:        privileges,
		})
	}
	return results, nil
}

// ApplicationHistory returns an application's status history, newest first.
func (s *Service) ApplicationHistory(ctx context.Context, id domain.ApplicationID) ([]audit.Entry, error) {
	return s.trail.History(ctx, audit.StreamApplication, uuid.UUID(id))
}

// PaymentForApplication returns the recorded payment, if any.
func (s *Service) PaymentForApplication(ctx context.Context, id domain.ApplicationID) (PaymentTransaction, error) {
	payment, err := s.payments.FindByApplication(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PaymentTransaction{}, dErrors.New(dErrors.CodeNotFound, "Payment not found")
		}
		return PaymentTransaction{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return payment, nil
}

func (s *Service) findApplication(ctx context.Context, id domain.ApplicationID) (Application, error) {
	app, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Application{}, dErrors.New(dErrors.CodeNotFound, "Application not found")
		}
		return Application{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
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

func (s *Service) recordApplicationHistory(ctx context.Context, id domain.ApplicationID, status ApplicationStatus, reason string, actor *domain.UserID) error {
	if err := s.trail.Record(ctx, audit.StreamApplication, uuid.UUID(id), string(status), reason, actor); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append application history")
	}
	return nil
}
