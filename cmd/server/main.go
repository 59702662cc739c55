package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"licensure/internal/audit"
	"licensure/internal/identity"
	identitystore "licensure/internal/identity/store"
	"licensure/internal/identity/store/session"
	"licensure/internal/license"
	licensestore "licensure/internal/license/store"
	"licensure/internal/memberstate"
	"licensure/internal/platform/config"
	"licensure/internal/platform/logger"
	"licensure/internal/platform/metrics"
	redisplatform "licensure/internal/platform/redis"
	"licensure/internal/privilege"
	privilegestore "licensure/internal/privilege/store"
	transport "licensure/internal/transport/http"
	"licensure/pkg/domain"
	"licensure/pkg/platform/tx"
)

const shutdownTimeout = 10 * time.Second

// main wires storage, services and the HTTP router. Without a Postgres DSN
// the process runs entirely in memory, which is the local development mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return err
		}
		log.Info("connected to postgres")
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("connected to redis")
	}

	deps := buildServices(cfg, db, redisClient, log)

	if db == nil {
		if err := seedMemberStates(context.Background(), deps.States, log); err != nil {
			return err
		}
	}

	router := transport.NewRouter(deps)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting licensure server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildServices(cfg config.Server, db *sql.DB, redisClient *redisplatform.Client, log *slog.Logger) transport.Deps {
	m := metrics.New()

	var (
		users         identity.UserStore
		practitioners identity.PractitionerStore
		licenses      license.Store
		designations  license.DesignationStore
		applications  privilege.ApplicationStore
		attestations  privilege.AttestationStore
		payments      privilege.PaymentStore
		privileges    privilege.PrivilegeStore
		states        memberstate.Store
		auditStore    audit.Store
		runner        tx.Runner
	)

	if db != nil {
		licenses = licensestore.NewPostgresLicenseStore(db)
		designations = licensestore.NewPostgresDesignationStore(db)
		applications = privilegestore.NewPostgresApplicationStore(db)
		attestations = privilegestore.NewPostgresAttestationStore(db)
		payments = privilegestore.NewPostgresPaymentStore(db)
		privileges = privilegestore.NewPostgresPrivilegeStore(db)
		states = memberstate.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
		users = identitystore.NewPostgresUserStore(db)
		practitioners = identitystore.NewPostgresPractitionerStore(db)
	} else {
		memUsers := identitystore.NewInMemoryUserStore()
		users = memUsers
		practitioners = identitystore.NewInMemoryPractitionerStore(memUsers)
		licenses = licensestore.NewInMemoryLicenseStore()
		designations = licensestore.NewInMemoryDesignationStore()
		applications = privilegestore.NewInMemoryApplicationStore()
		attestations = privilegestore.NewInMemoryAttestationStore()
		payments = privilegestore.NewInMemoryPaymentStore()
		privileges = privilegestore.NewInMemoryPrivilegeStore()
		states = memberstate.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		runner = tx.NewShardedRunner()
	}

	var sessions identity.SessionStore
	if redisClient != nil {
		sessions = session.NewRedis(redisClient.Client)
	} else {
		sessions = session.New()
	}

	trail := audit.NewTrail(auditStore)

	identityService := identity.NewService(users, practitioners, sessions,
		identity.WithLogger(log),
		identity.WithSessionTTL(cfg.SessionTTL),
		identity.WithBcryptCost(cfg.BcryptCost),
	)
	licenseService := license.NewService(licenses, designations, practitioners, trail, runner,
		license.WithLogger(log),
		license.WithMetrics(m),
	)
	privilegeService := privilege.NewService(privilege.Deps{
		Applications:  applications,
		Attestations:  attestations,
		Payments:      payments,
		Privileges:    privileges,
		Practitioners: practitioners,
		Designations:  designations,
		Licenses:      licenses,
		States:        states,
		Trail:         trail,
		TxRunner:      runner,
	}, privilege.WithLogger(log), privilege.WithMetrics(m))

	return transport.Deps{
		Identity:   identityService,
		Licenses:   licenseService,
		Privileges: privilegeService,
		States:     states,
		Logger:     log,
	}
}

// seedMemberStates loads a starter set of compact jurisdictions so the
// in-memory mode is usable out of the box.
func seedMemberStates(ctx context.Context, states memberstate.Store, log *slog.Logger) error {
	seed := []struct {
		code string
		name string
	}{
		{"AK", "Alaska"},
		{"CO", "Colorado"},
		{"MA", "Massachusetts"},
		{"OH", "Ohio"},
		{"UT", "Utah"},
	}

	now := time.Now().UTC()
	for _, s := range seed {
		state := memberstate.MemberState{
			ID:        domain.NewMemberStateID(),
			Code:      s.code,
			Name:      s.name,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := states.Create(ctx, state); err != nil {
			return err
		}
	}
	log.Info("seeded member states", "count", len(seed))
	return nil
}
