package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/water-level-analysis/internal/adapter/format"
	"github.com/couchcryptid/water-level-analysis/internal/domain"
)

// maxJobBytes bounds a POSTed job; a month of one-minute samples is about 3 MB.
const maxJobBytes = 32 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// JobAnalyzer runs a parsed job and reports on it.
type JobAnalyzer interface {
	Defaults() domain.AnalysisConfig
	Analyze(ctx context.Context, job domain.Job) (domain.Report, error)
}

// Server exposes health, readiness, metrics, and on-demand analysis endpoints.
type Server struct {
	httpServer *http.Server
	analyzer   JobAnalyzer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /v1/analyze routes.
func NewServer(addr string, ready ReadinessChecker, analyzer JobAnalyzer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		analyzer: analyzer,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleAnalyze runs a JSON job synchronously. Bad payloads and series the
// engine rejects are 400s; the report is JSON unless ?format=msgpack.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJobBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := domain.ParseJob(body, s.analyzer.Defaults())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), job)
	switch {
	case err == nil:
	case domain.IsInputError(err):
		writeError(w, http.StatusBadRequest, err)
		return
	case r.Context().Err() != nil:
		s.logger.Warn("analysis request cancelled", "station_id", job.StationID, "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	default:
		s.logger.Error("analysis failed", "station_id", job.StationID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := format.Write(w, r, http.StatusOK, report); err != nil {
		s.logger.Warn("write analysis response failed", "run_id", report.RunID, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
