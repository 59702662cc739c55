package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"licensure/internal/identity"
	"licensure/internal/license"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
)

// LicenseHandler exposes license registration, verification, listing and
// qualifying designation.
type LicenseHandler struct {
	licenses *license.Service
	identity *identity.Service
	logger   *slog.Logger
}

func NewLicenseHandler(licenseService *license.Service, identityService *identity.Service, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{licenses: licenseService, identity: identityService, logger: logger}
}

func (h *LicenseHandler) Register(r chi.Router) {
	r.Get("/licenses", h.list)
	r.Post("/licenses", h.create)
	r.Post("/licenses/verify", h.verify)
	r.Post("/licenses/designate", h.designate)
	r.Get("/licenses/designations", h.listDesignations)
}

type licenseDTO struct {
	ID                 domain.LicenseID           `json:"id"`
	PractitionerID     domain.PractitionerID      `json:"practitionerId"`
	IssuingStateID     domain.MemberStateID       `json:"issuingStateId"`
	LicenseNumber      string                     `json:"licenseNumber"`
	IssueDate          time.Time                  `json:"issueDate"`
	ExpirationDate     time.Time                  `json:"expirationDate"`
	SelfReportedStatus license.SelfReportedStatus `json:"selfReportedStatus"`
	VerificationStatus license.VerificationStatus `json:"verificationStatus"`
	EvidenceURL        *string                    `json:"evidenceUrl,omitempty"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
}

func toLicenseDTO(lic license.License) licenseDTO {
	return licenseDTO{
		ID:                 lic.ID,
		PractitionerID:     lic.PractitionerID,
		IssuingStateID:     lic.IssuingStateID,
		LicenseNumber:      lic.LicenseNumber,
		IssueDate:          lic.IssueDate,
		ExpirationDate:     lic.ExpirationDate,
		SelfReportedStatus: lic.SelfReportedStatus,
		VerificationStatus: lic.VerificationStatus,
		EvidenceURL:        lic.EvidenceURL,
		CreatedAt:          lic.CreatedAt,
		UpdatedAt:          lic.UpdatedAt,
	}
}

func toLicenseDTOs(licenses []license.License) []licenseDTO {
	dtos := make([]licenseDTO, 0, len(licenses))
	for _, lic := range licenses {
		dtos = append(dtos, toLicenseDTO(lic))
	}
	return dtos
}

type designationDTO struct {
	ID             domain.DesignationID      `json:"id"`
	PractitionerID domain.PractitionerID     `json:"practitionerId"`
	LicenseID      domain.LicenseID          `json:"licenseId"`
	EffectiveFrom  time.Time                 `json:"effectiveFrom"`
	EffectiveTo    *time.Time                `json:"effectiveTo,omitempty"`
	Status         license.DesignationStatus `json:"status"`
	CreatedAt      time.Time                 `json:"createdAt"`
}

func toDesignationDTO(d license.Designation) designationDTO {
	return designationDTO{
		ID:             d.ID,
		PractitionerID: d.PractitionerID,
		LicenseID:      d.LicenseID,
		EffectiveFrom:  d.EffectiveFrom,
		EffectiveTo:    d.EffectiveTo,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt,
	}
}

type createLicenseRequest struct {
	IssuingStateID     string  `json:"issuingStateId"`
	LicenseNumber      string  `json:"licenseNumber"`
	IssueDate          string  `json:"issueDate"`
	ExpirationDate     string  `json:"expirationDate"`
	SelfReportedStatus string  `json:"selfReportedStatus"`
	EvidenceURL        *string `json:"evidenceUrl"`
}

func (h *LicenseHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req createLicenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	issuingStateID, err := domain.ParseMemberStateID(req.IssuingStateID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	issueDate, err := parseDate(req.IssueDate, "issueDate")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	expirationDate, err := parseDate(req.ExpirationDate, "expirationDate")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.licenses.AddLicense(r.Context(), actor, license.AddLicenseInput{
		IssuingStateID:     issuingStateID,
		LicenseNumber:      req.LicenseNumber,
		IssueDate:          issueDate,
		ExpirationDate:     expirationDate,
		SelfReportedStatus: license.SelfReportedStatus(req.SelfReportedStatus),
		EvidenceURL:        req.EvidenceURL,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLicenseDTO(created))
}

type verifyLicenseRequest struct {
	LicenseID string `json:"licenseId"`
	Status    string `json:"status"`
	Note      string `json:"note"`
}

func (h *LicenseHandler) verify(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req verifyLicenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	licenseID, err := domain.ParseLicenseID(req.LicenseID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.licenses.VerifyLicense(r.Context(), actor, license.VerifyLicenseInput{
		LicenseID: licenseID,
		Status:    license.VerificationStatus(req.Status),
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLicenseDTO(updated))
}

type designateRequest struct {
	LicenseID string `json:"licenseId"`
}

// designate uses the license's own validity window as the designation's
// effective range.
func (h *LicenseHandler) designate(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	var req designateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	licenseID, err := domain.ParseLicenseID(req.LicenseID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	lic, err := h.licenses.GetLicenseByID(r.Context(), licenseID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.licenses.Designate(r.Context(), actor, license.DesignateInput{
		LicenseID:     licenseID,
		EffectiveFrom: &lic.IssueDate,
		EffectiveTo:   &lic.ExpirationDate,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDesignationDTO(created))
}

func (h *LicenseHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	licenses, err := h.licenses.GetLicenses(r.Context(), license.GetLicensesParams{
		Actor:  actor,
		Status: license.VerificationStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLicenseDTOs(licenses))
}

func (h *LicenseHandler) listDesignations(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)

	practitioner, err := h.identity.PractitionerForUser(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	designations, err := h.licenses.ListDesignations(r.Context(), practitioner.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	dtos := make([]designationDTO, 0, len(designations))
	for _, d := range designations {
		dtos = append(dtos, toDesignationDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// parseDate accepts a calendar date or a full timestamp.
func parseDate(value, field string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Invalid date for %s", field))
}
