// Package httpserver provides the HTTP API of the paper enrichment service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/database"
	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/enrichment"
	"github.com/helixir/paper-enrichment-service/internal/temporal"
)

// PaperService is implemented by *enrichment.Service.
type PaperService interface {
	EnrichByDOI(ctx context.Context, doi string) (*domain.Paper, error)
	EnrichByQuery(ctx context.Context, query string, count int) (*enrichment.QueryResult, error)
	RefreshMetrics(ctx context.Context, doi string) (*domain.Paper, error)
	Lookup(ctx context.Context, doi string) (*domain.Paper, error)
	GenerateReports(ctx context.Context, query string, papers []*domain.Paper) map[string]string
	CiteCheck(ctx context.Context, query, doi string) (*enrichment.CiteCheckResult, error)
}

// BatchClient is implemented by *temporal.BatchWorkflowClient.
type BatchClient interface {
	StartBatch(ctx context.Context, input temporal.BatchWorkflowInput) (workflowID, runID string, err error)
	DescribeWorkflow(ctx context.Context, workflowID, runID string) (*temporal.WorkflowDescription, error)
	QueryProgress(ctx context.Context, workflowID, runID string) (*temporal.BatchProgress, error)
	CancelWorkflow(ctx context.Context, workflowID, runID string) error
	GetBatchResult(ctx context.Context, workflowID, runID string) (*temporal.BatchResult, error)
}

// HealthChecker is implemented by *database.DB.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	papers     PaperService
	batches    BatchClient
	health     HealthChecker
	validate   *validator.Validate
	logger     zerolog.Logger

	sseInterval    time.Duration
	sseMaxDuration time.Duration
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MetricsPath exposes Prometheus metrics when non-empty.
	MetricsPath string
}

// Dependencies are the collaborators of the server. Batches and Health may be
// nil: batch endpoints then answer 503 and readiness skips the database check.
type Dependencies struct {
	Papers  PaperService
	Batches BatchClient
	Health  HealthChecker
	Logger  zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	s := &Server{
		papers:   deps.Papers,
		batches:  deps.Batches,
		health:   deps.Health,
		validate: newValidator(),
		logger:   deps.Logger.With().Str("component", "http-server").Logger(),

		sseInterval:    sseQueryInterval,
		sseMaxDuration: sseMaxDuration,
	}

	s.router = s.buildRouter(cfg.MetricsPath)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) buildRouter(metricsPath string) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogMiddleware(s.logger))

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if metricsPath != "" {
		r.Method(http.MethodGet, metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Get("/papers", s.lookupPaper)
		r.Post("/papers/enrich", s.enrichPaper)
		r.Post("/papers/refresh", s.refreshPaper)
		r.Post("/papers/search", s.searchPapers)
		r.Post("/papers/citecheck", s.citeCheck)

		r.Post("/batches", s.startBatch)
		r.Get("/batches/{workflowID}", s.getBatch)
		r.Delete("/batches/{workflowID}", s.cancelBatch)
		r.Get("/batches/{workflowID}/progress", s.streamBatchProgress)
	})

	return r
}

// Handler returns the root handler. It is used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness. It never touches dependencies.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports readiness including database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	health := s.health.Health(r.Context())
	if !health.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": health.Status,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
