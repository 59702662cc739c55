package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"licensure/internal/privilege"
	"licensure/pkg/domain"
)

// PrivilegeHandler exposes the application workflow, privilege listings and
// the public practitioner search.
type PrivilegeHandler struct {
	privileges *privilege.Service
	logger     *slog.Logger
}

func NewPrivilegeHandler(privilegeService *privilege.Service, logger *slog.Logger) *PrivilegeHandler {
	return &PrivilegeHandler{privileges: privilegeService, logger: logger}
}

func (h *PrivilegeHandler) Register(r chi.Router) {
	r.Get("/privileges", h.listPrivileges)
	r.Get("/privileges/applications", h.listApplications)
	r.Get("/privileges/review", h.reviewQueue)
	r.Post("/privileges/apply", h.apply)
	r.Post("/privileges/pay", h.pay)
	r.Post("/privileges/verify", h.determine)
}

// RegisterPublic mounts the search route, which serves unauthenticated
// directory lookups.
func (h *PrivilegeHandler) RegisterPublic(r chi.Router) {
	r.Get("/privileges/search", h.search)
}

type applicationDTO struct {
	ID                  domain.ApplicationID        `json:"id"`
	PractitionerID      domain.PractitionerID       `json:"practitionerId"`
	RemoteStateID       domain.MemberStateID        `json:"remoteStateId"`
	QualifyingLicenseID domain.LicenseID            `json:"qualifyingLicenseId"`
	Status              privilege.ApplicationStatus `json:"status"`
	ApplicantNote       *string                     `json:"applicantNote,omitempty"`
	ReviewerNote        *string                     `json:"reviewerNote,omitempty"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
}

func toApplicationDTO(app privilege.Application) applicationDTO {
	return applicationDTO{
		ID:                  app.ID,
		PractitionerID:      app.PractitionerID,
		RemoteStateID:       app.RemoteStateID,
		QualifyingLicenseID: app.QualifyingLicenseID,
		Status:              app.Status,
		ApplicantNote:       app.ApplicantNote,
		ReviewerNote:        app.ReviewerNote,
		CreatedAt:           app.CreatedAt,
		UpdatedAt:           app.UpdatedAt,
	}
}

func toApplicationDTOs(apps []privilege.Application) []applicationDTO {
	dtos := make([]applicationDTO, 0, len(apps))
	for _, app := range apps {
		dtos = append(dtos, toApplicationDTO(app))
	}
	return dtos
}

type privilegeDTO struct {
	ID                  domain.PrivilegeID        `json:"id"`
	PractitionerID      domain.PractitionerID     `json:"practitionerId"`
	RemoteStateID       domain.MemberStateID      `json:"remoteStateId"`
	ApplicationID       domain.ApplicationID      `json:"applicationId"`
	QualifyingLicenseID domain.LicenseID          `json:"qualifyingLicenseId"`
	Status              privilege.PrivilegeStatus `json:"status"`
	IssuedAt            time.Time                 `json:"issuedAt"`
	ExpiresAt           *time.Time                `json:"expiresAt,omitempty"`
}

func toPrivilegeDTO(p privilege.Privilege) privilegeDTO {
	return privilegeDTO{
		ID:                  p.ID,
		PractitionerID:      p.PractitionerID,
		RemoteStateID:       p.RemoteStateID,
		ApplicationID:       p.ApplicationID,
		QualifyingLicenseID: p.QualifyingLicenseID,
		Status:              p.Status,
		IssuedAt:            p.IssuedAt,
		ExpiresAt:           p.ExpiresAt,
	}
}

func toPrivilegeDTOs(privileges []privilege.Privilege) []privilegeDTO {
	dtos := make([]privilegeDTO, 0, len(privileges))
	for _, p := range privileges {
		dtos = append(dtos, toPrivilegeDTO(p))
	}
	return dtos
}

type applyRequest struct {
	PractitionerID      string  `json:"practitionerId"`
	RemoteStateID       string  `json:"remoteStateId"`
	QualifyingLicenseID string  `json:"qualifyingLicenseId"`
	AttestationType     string  `json:"attestationType"`
	AttestationAccepted bool    `json:"attestationAccepted"`
	AttestationText     *string `json:"attestationText"`
	ApplicantNote       *string `json:"applicantNote"`
}

func (h *PrivilegeHandler) apply(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	practitionerID, err := domain.ParsePractitionerID(req.PractitionerID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	remoteStateID, err := domain.ParseMemberStateID(req.RemoteStateID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	qualifyingLicenseID, err := domain.ParseLicenseID(req.QualifyingLicenseID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	app, err := h.privileges.Apply(r.Context(), actor, privilege.ApplyInput{
		PractitionerID:      practitionerID,
		RemoteStateID:       remoteStateID,
		QualifyingLicenseID: qualifyingLicenseID,
		AttestationType:     req.AttestationType,
		AttestationAccepted: req.AttestationAccepted,
		AttestationText:     req.AttestationText,
		ApplicantNote:       req.ApplicantNote,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationDTO(app))
}

type payRequest struct {
	ApplicationID string `json:"applicationId"`
	Amount        int64  `json:"amount"`
}

func (h *PrivilegeHandler) pay(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	applicationID, err := domain.ParseApplicationID(req.ApplicationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	app, err := h.privileges.RecordPayment(r.Context(), actor, applicationID, req.Amount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationDTO(app))
}

type determineRequest struct {
	ApplicationID string     `json:"applicationId"`
	Status        string     `json:"status"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	ReviewerNote  *string    `json:"reviewerNote"`
}

type determineResponse struct {
	Application applicationDTO `json:"application"`
	Privilege   *privilegeDTO  `json:"privilege,omitempty"`
}

func (h *PrivilegeHandler) determine(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req determineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	applicationID, err := domain.ParseApplicationID(req.ApplicationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.privileges.Determine(r.Context(), actor, privilege.DetermineInput{
		ApplicationID: applicationID,
		Status:        privilege.ApplicationStatus(req.Status),
		ExpiresAt:     req.ExpiresAt,
		ReviewerNote:  req.ReviewerNote,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := determineResponse{Application: toApplicationDTO(result.Application)}
	if result.Privilege != nil {
		dto := toPrivilegeDTO(*result.Privilege)
		resp.Privilege = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PrivilegeHandler) listPrivileges(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	privileges, err := h.privileges.ListPrivileges(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrivilegeDTOs(privileges))
}

func (h *PrivilegeHandler) listApplications(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	applications, err := h.privileges.ListApplications(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationDTOs(applications))
}

func (h *PrivilegeHandler) reviewQueue(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	applications, err := h.privileges.ListApplicationsForState(r.Context(), actor,
		privilege.ApplicationStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationDTOs(applications))
}

type searchResultDTO struct {
	PractitionerID    domain.PractitionerID `json:"practitionerId"`
	FirstName         string                `json:"firstName"`
	LastName          string                `json:"lastName"`
	Email             string                `json:"email"`
	QualifyingLicense licenseDTO            `json:"qualifyingLicense"`
	Privileges        []privilegeDTO        `json:"privileges"`
}

func (h *PrivilegeHandler) search(w http.ResponseWriter, r *http.Request) {
	results, err := h.privileges.Search(r.Context(), privilege.SearchInput{
		Name:            r.URL.Query().Get("name"),
		QualifyingState: r.URL.Query().Get("qualifyingLicenseState"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	dtos := make([]searchResultDTO, 0, len(results))
	for _, result := range results {
		dtos = append(dtos, searchResultDTO{
			PractitionerID:    result.Practitioner.Practitioner.ID,
			FirstName:         result.Practitioner.FirstName,
			LastName:          result.Practitioner.LastName,
			Email:             result.Practitioner.UserEmail,
			QualifyingLicense: toLicenseDTO(result.QualifyingLicense),
			Privileges:        toPrivilegeDTOs(result.Privileges),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}
