// Package api implements the HTTP layer for the audit webhook backend.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/roi-audit-backend/internal/pipeline"
	"github.com/nyashahama/roi-audit-backend/internal/store"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// AllowedOrigin is sent as Access-Control-Allow-Origin in production.
	// Empty allows any origin.
	AllowedOrigin string

	// RequestTimeout bounds one request, including the AI and email calls the
	// webhook makes. Zero selects 120s.
	RequestTimeout time.Duration
}

// Processor runs the webhook pipeline for one delivery.
type Processor interface {
	Process(ctx context.Context, d pipeline.Delivery) pipeline.Outcome
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// store serves submission reads and the health check.
	store *store.Store

	// pipeline processes webhook deliveries.
	pipeline Processor

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	st *store.Store,
	proc Processor,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		store:    st,
		pipeline: proc,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(timeout))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", s.handleHealthz)

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		// Typeform webhook. No auth; the signature is checked by the pipeline.
		r.Post("/webhooks/typeform", s.handleTypeformWebhook)
		r.Post("/typeform-webhook", s.handleTypeformWebhook)

		// Submission status. No auth; the id is an unguessable uuid.
		r.Get("/submissions/{submissionID}", s.handleGetSubmission)
	})

	return r
}

// handleHealthz reports 200 when the database answers a ping.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("healthz: database unreachable", "error", err, logField(r))
		respondErr(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	w.WriteHeader(http.StatusOK)
}
