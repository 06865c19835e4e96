package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/api/handler"
	mw "github.com/edvin/backupd/internal/api/middleware"
)

// Pinger reports datastore reachability for /readyz. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the server to its collaborators. APIKeys and DB are optional:
// without APIKeys the key management routes are not mounted, and without DB
// readiness only reports the process as up.
type Deps struct {
	Backups handler.BackupAPI
	APIKeys handler.APIKeyStore
	Authn   mw.Authenticator
	Audit   *mw.AuditLogger
	DB      Pinger
}

type Server struct {
	router chi.Router
	logger zerolog.Logger
	deps   Deps
}

func NewServer(logger zerolog.Logger, deps Deps) *Server {
	if deps.Audit == nil {
		deps.Audit = mw.NewAuditLogger(nil, logger)
	}

	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		deps:   deps,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(mw.Auth(s.deps.Authn))
		r.Use(mw.RequireAdmin())
		r.Use(s.deps.Audit.Middleware)

		backup := handler.NewBackup(s.deps.Backups)
		r.Get("/backups", backup.List)
		r.Post("/backups", backup.Create)
		r.Post("/backups/restore", backup.Restore)
		r.Get("/backups/restore/status", backup.Status)
		r.Get("/backups/{backupID}", backup.Get)

		if s.deps.APIKeys != nil {
			apiKey := handler.NewAPIKey(s.deps.APIKeys)
			r.Get("/api-keys", apiKey.List)
			r.Post("/api-keys", apiKey.Create)
			r.Delete("/api-keys/{id}", apiKey.Revoke)
		}
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx); err != nil {
			checks["core_db"] = err.Error()
			healthy = false
		} else {
			checks["core_db"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

// Close flushes the audit log.
func (s *Server) Close() {
	s.deps.Audit.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
