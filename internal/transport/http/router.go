package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"licensure/internal/identity"
	"licensure/internal/license"
	"licensure/internal/memberstate"
	"licensure/internal/platform/middleware"
	"licensure/internal/privilege"
)

const requestTimeout = 30 * time.Second

type Deps struct {
	Identity   *identity.Service
	Licenses   *license.Service
	Privileges *privilege.Service
	States     memberstate.Store
	Logger     *slog.Logger
}

// NewRouter wires the full route table. Health, metrics, login and the
// public search are reachable without a session; everything else sits behind
// the session middleware.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandler := NewAuthHandler(deps.Identity, logger)
	licenseHandler := NewLicenseHandler(deps.Licenses, deps.Identity, logger)
	privilegeHandler := NewPrivilegeHandler(deps.Privileges, logger)
	stateHandler := NewMemberStateHandler(deps.States, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	authHandler.RegisterPublic(r)
	privilegeHandler.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(deps.Identity, logger))
		authHandler.Register(r)
		licenseHandler.Register(r)
		privilegeHandler.Register(r)
		stateHandler.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
