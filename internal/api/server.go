// Package api exposes the job submission and cancellation endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/kareone/market-navigator/internal/core/errors"
	"github.com/kareone/market-navigator/internal/process/acquisition"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxRequestBody    = 1 << 20
)

// JobRunner is the acquisition surface the API exposes.
type JobRunner interface {
	Run(ctx context.Context, req acquisition.Request) (*acquisition.Result, error)
	Cancel(requestID string) bool
}

// Server serves the job API.
type Server struct {
	runner JobRunner
	port   int
	logger *zerolog.Logger
}

// NewServer creates the API server.
func NewServer(runner JobRunner, port int, logger *zerolog.Logger) *Server {
	return &Server{
		runner: runner,
		port:   port,
		logger: logger,
	}
}

// Start runs the server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("Job API server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/jobs", s.handleRunJob)
	mux.HandleFunc("POST /api/v1/jobs/{id}/cancel", s.handleCancelJob)

	return mux
}

// handleRunJob runs the job synchronously and returns the full result. The
// caller can cancel mid-flight via the cancel endpoint using the request id
// it supplied.
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var req acquisition.Request

	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))

		return
	}

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if apperrors.Is(err, apperrors.ErrNoKeywords) || apperrors.Is(err, apperrors.ErrInvalidWeights) {
			status = http.StatusBadRequest
		}

		s.writeError(w, status, err)

		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	if !s.runner.Cancel(requestID) {
		s.writeError(w, http.StatusNotFound,
			fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, requestID))

		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id": requestID,
		"cancelled":  true,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
