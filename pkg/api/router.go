// Package api exposes the migration engine over HTTP: discovery, the
// migration ledger, previews, applies, rollbacks, batches, async jobs, the
// audit trail, and the live translation state.
package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/i18nhub/translation-migrator/pkg/audit"
	"github.com/i18nhub/translation-migrator/pkg/authz"
	"github.com/i18nhub/translation-migrator/pkg/engine"
	"github.com/i18nhub/translation-migrator/pkg/environment"
	"github.com/i18nhub/translation-migrator/pkg/jobs"
	"github.com/i18nhub/translation-migrator/pkg/livestore"
)

// BasePath is where the migration API is mounted.
const BasePath = "/api/migrations/v1alpha1"

// Config carries the cross-cutting server concerns.
type Config struct {
	EnvironmentMode environment.Mode
	Authorizer      authz.Authorizer // Nil disables authorization.
	AuditConfig     *audit.AuditConfig
	Logger          *slog.Logger
}

// Server assembles the HTTP surface of the migration service.
type Server struct {
	engine     *engine.Engine
	live       *livestore.Store
	jobStore   *jobs.JobStore // Nil disables async execution.
	auditStore *audit.Store
	cfg        *Config
	logger     *slog.Logger
	ready      atomic.Bool
}

// NewServer creates a Server. jobStore and auditStore may be nil.
func NewServer(eng *engine.Engine, live *livestore.Store, jobStore *jobs.JobStore, auditStore *audit.Store, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:     eng,
		live:       live,
		jobStore:   jobStore,
		auditStore: auditStore,
		cfg:        cfg,
		logger:     logger,
	}
}

// MarkReady flips the /readyz probe to ready. Called once startup work
// (schema setup, initial discovery) has finished.
func (s *Server) MarkReady() {
	s.ready.Store(true)
}

// MountRoutes creates the HTTP router with every API route mounted.
func (s *Server) MountRoutes() chi.Router {
	r := chi.NewRouter()

	// Common middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", environment.Header},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Resolve the deployment environment per request.
	r.Use(environment.NewMiddleware(s.cfg.EnvironmentMode))

	// Extract X-Remote-User/X-Remote-Group into context.
	r.Use(authz.IdentityMiddleware())

	// Capture mutating API requests as audit events.
	if s.auditStore != nil && s.cfg.AuditConfig != nil && s.cfg.AuditConfig.Enabled {
		r.Use(audit.Middleware(s.auditStore, s.cfg.AuditConfig, s.logger))
		s.logger.Info("audit middleware enabled",
			"logDenied", s.cfg.AuditConfig.LogDenied,
			"retentionDays", s.cfg.AuditConfig.RetentionDays)
	}

	r.Route(BasePath, func(r chi.Router) {
		// Authorization applies to the whole API surface; sub-routers
		// receive a nil authorizer so checks are not repeated.
		if s.cfg.Authorizer != nil {
			r.Use(authz.AuthzMiddleware(s.cfg.Authorizer))
		}

		r.Post("/discover", discoverHandler(s.engine))

		r.Get("/migrations", listMigrationsHandler(s.engine))
		r.Post("/migrations:applyBatch", applyBatchHandler(s.engine, s.jobStore))
		r.Post("/migrations:retryFailed", retryFailedHandler(s.engine, s.jobStore))
		r.Route("/migrations/{migrationId}", func(r chi.Router) {
			r.Get("/", getMigrationHandler(s.engine))
			r.Get("/preview", previewMigrationHandler(s.engine))
			r.Get("/download", downloadMigrationHandler(s.engine))
		})
		r.Post("/migrations/{migrationId}:apply", applyMigrationHandler(s.engine, s.jobStore))
		r.Post("/migrations/{migrationId}:rollback", rollbackMigrationHandler(s.engine))
		r.Post("/migrations/{migrationId}:retry", retryMigrationHandler(s.engine))

		r.Get("/translations/{interface}", listTranslationsHandler(s.live))

		if s.jobStore != nil {
			r.Mount("/jobs", jobs.Router(s.jobStore, nil))
		}
		if s.auditStore != nil {
			r.Mount("/audit", audit.Router(s.auditStore, nil))
		}
	})

	// Health endpoints stay outside authorization.
	r.Get("/healthz", s.healthHandler)
	r.Get("/livez", s.healthHandler)
	r.Get("/readyz", s.readyHandler)

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyHandler(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
