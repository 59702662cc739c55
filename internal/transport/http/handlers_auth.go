package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"licensure/internal/authz"
	"licensure/internal/identity"
	"licensure/internal/platform/middleware"
	"licensure/pkg/domain"
	dErrors "licensure/pkg/domain-errors"
)

// AuthHandler exposes login, logout and the current-user endpoint.
type AuthHandler struct {
	identity *identity.Service
	logger   *slog.Logger
}

func NewAuthHandler(identityService *identity.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{identity: identityService, logger: logger}
}

// RegisterPublic mounts the routes that must work without a session.
func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/login", h.login)
}

// Register mounts the session-protected routes.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/users/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID            domain.UserID         `json:"id"`
	Email         string                `json:"email"`
	FirstName     string                `json:"firstName"`
	LastName      string                `json:"lastName"`
	Role          identity.Role         `json:"role"`
	MemberStateID *domain.MemberStateID `json:"memberStateId,omitempty"`
}

func toUserDTO(user identity.User) userDTO {
	return userDTO{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Role:          user.Role,
		MemberStateID: user.MemberStateID,
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, user, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.identity.SessionTTL().Seconds()),
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserDTO(user)})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if err := h.identity.Logout(r.Context(), token); err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		writeError(w, h.logger, dErrors.New(dErrors.CodeUnauthenticated, "Unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// actorFrom builds the policy actor for the authenticated user.
func actorFrom(r *http.Request) (authz.Actor, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		return authz.Anonymous, false
	}
	return authz.Actor{
		Authenticated: true,
		UserID:        user.ID,
		Role:          user.Role,
		MemberStateID: user.MemberStateID,
	}, true
}
