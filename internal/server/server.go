package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quartzbi/quartz/internal/config"
	"github.com/quartzbi/quartz/internal/connector"
	"github.com/quartzbi/quartz/internal/handler"
	"github.com/quartzbi/quartz/internal/openapi"
	"github.com/quartzbi/quartz/internal/server/middleware"
	"github.com/quartzbi/quartz/internal/service"
	"github.com/quartzbi/quartz/internal/usage"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	LoginRatePerMin int   // per-IP limit on the login endpoint
	MaxBodySize     int64 // bytes
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		LoginRatePerMin: 10,
		MaxBodySize:     1 * 1024 * 1024, // 1MB
	}
}

// Server is the top-level HTTP server for Quartz. It owns the Chi router,
// the connector registry, configuration store, auth and key services, and
// the usage recorder.
type Server struct {
	cfg        Config
	router     chi.Router
	registry   *connector.Registry
	store      *config.Store
	authSvc    *service.AuthService
	keySvc     *service.KeyService
	recorder   *usage.Recorder
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, registry *connector.Registry, store *config.Store, authSvc *service.AuthService, keySvc *service.KeyService, recorder *usage.Recorder, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		store:    store,
		authSvc:  authSvc,
		keySvc:   keySvc,
		recorder: recorder,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Total-Count", "X-Request-ID", "Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI spec (no auth required) ---
	r.Get("/openapi.json", openapi.NewHandler().ServeSpec)

	keyLimiter := middleware.NewKeyRateLimiter()

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {

		// System APIs (admin management)
		r.Route("/system", func(r chi.Router) {
			sysHandler := handler.NewSystemHandler(s.store, s.authSvc, s.registry)
			keyHandler := handler.NewAPIKeyHandler(s.keySvc)
			settingsHandler := handler.NewSettingsHandler(s.store)

			// Session endpoints are unauthenticated (login) or self-authenticated (logout)
			r.With(middleware.RateLimit(s.cfg.LoginRatePerMin)).
				Post("/admin/session", sysHandler.Login)
			r.Delete("/admin/session", sysHandler.Logout)

			// All other system endpoints require admin authentication
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(s.authSvc))
				r.Use(middleware.RequireAdmin())

				// Admin accounts
				r.Get("/admins", sysHandler.ListAdmins)
				r.Post("/admins", sysHandler.CreateAdmin)

				// Data sources
				r.Get("/sources", sysHandler.ListSources)
				r.Post("/sources", sysHandler.CreateSource)
				r.Get("/sources/{sourceName}", sysHandler.GetSource)
				r.Delete("/sources/{sourceName}", sysHandler.DeleteSource)
				r.Post("/sources/{sourceName}/test", sysHandler.TestConnection)
				r.Get("/sources/{sourceName}/schema", sysHandler.GetSourceSchema)
				r.Get("/sources/{sourceName}/schema/{tableName}", sysHandler.GetTableSchema)
				r.Get("/sources/{sourceName}/openapi.json", sysHandler.GetSourceSpec)

				// API key lifecycle
				r.Get("/api-keys", keyHandler.List)
				r.Post("/api-keys", keyHandler.Create)
				r.Get("/api-keys/{keyID}", keyHandler.Get)
				r.Patch("/api-keys/{keyID}", keyHandler.Update)
				r.Delete("/api-keys/{keyID}", keyHandler.Delete)
				r.Post("/api-keys/{keyID}/rotate", keyHandler.Rotate)
				r.Put("/api-keys/{keyID}/active", keyHandler.SetActive)
				r.Get("/api-keys/{keyID}/usage", keyHandler.Usage)

				// Scope catalog
				r.Get("/scopes", keyHandler.ListScopes)
				r.Post("/scopes/toggle", keyHandler.ToggleScopeCategory)

				// Integration settings
				r.Get("/settings/smtp", settingsHandler.GetSMTP)
				r.Put("/settings/smtp", settingsHandler.PutSMTP)
				r.Get("/settings/slack", settingsHandler.GetSlack)
				r.Put("/settings/slack", settingsHandler.PutSlack)
			})
		})

		// Workspace APIs (API key consumers). Requests count against the
		// key's rate limit and are recorded for usage statistics.
		r.Route("/workspace", func(r chi.Router) {
			sysHandler := handler.NewSystemHandler(s.store, s.authSvc, s.registry)

			r.Use(middleware.Authenticate(s.authSvc))
			r.Use(keyLimiter.Middleware())
			r.Use(middleware.KeyUsage(s.recorder))

			r.With(middleware.RequireScope("workspace:read")).
				Get("/ping", s.handlePing)

			r.With(middleware.RequireScope("sources:read")).
				Get("/sources", sysHandler.ListSources)
			r.With(middleware.RequireScope("sources:schema")).
				Get("/sources/{sourceName}/schema", sysHandler.GetSourceSchema)
			r.With(middleware.RequireScope("sources:schema")).
				Get("/sources/{sourceName}/schema/{tableName}", sysHandler.GetTableSchema)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the config store and
// all data source connectors are reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["store"] = "ok"
	}

	for _, name := range s.registry.ListSources() {
		conn, err := s.registry.Get(name)
		if err != nil {
			checks[name] = "error: " + err.Error()
			status = "degraded"
			continue
		}
		if err := conn.Ping(r.Context()); err != nil {
			checks[name] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks[name] = "ok"
		}
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// handlePing is a minimal key-authenticated endpoint: it echoes the key's
// identity and scopes so integrators can verify their credential works.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())

	resp := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if p != nil && p.Type == "api_key" {
		resp["key_id"] = p.KeyID
		resp["scopes"] = p.Scopes
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests, flushing buffered usage, and closing all database connections.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.recorder.Start()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Flush buffered usage, then close all database connections.
	s.recorder.Shutdown()
	s.registry.CloseAll()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
