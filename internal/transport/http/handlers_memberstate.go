package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"licensure/internal/memberstate"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
)

// MemberStateHandler lists the compact's member jurisdictions.
type MemberStateHandler struct {
	states memberstate.Store
	logger *slog.Logger
}

func NewMemberStateHandler(states memberstate.Store, logger *slog.Logger) *MemberStateHandler {
	return &MemberStateHandler{states: states, logger: logger}
}

func (h *MemberStateHandler) Register(r chi.Router) {
	r.Get("/states", h.list)
}

type memberStateDTO struct {
	ID        domain.MemberStateID `json:"id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	IsActive  bool                 `json:"isActive"`
	CreatedAt time.Time            `json:"createdAt"`
}

func (h *MemberStateHandler) list(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	states, err := h.states.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, h.logger, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list member states"))
		return
	}

	dtos := make([]memberStateDTO, 0, len(states))
	for _, state := range states {
		dtos = append(dtos, memberStateDTO{
			ID:        state.ID,
			Code:      state.Code,
			Name:      state.Name,
			IsActive:  state.IsActive,
			CreatedAt: state.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}
