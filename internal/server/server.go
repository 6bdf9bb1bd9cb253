// Package server exposes the moderation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/seemly-ai/seemly/internal/audit"
	"github.com/seemly-ai/seemly/internal/auth"
	"github.com/seemly-ai/seemly/internal/config"
	"github.com/seemly-ai/seemly/internal/pipeline"
	"github.com/seemly-ai/seemly/internal/telemetry"
)

// Moderator runs one moderation and always returns a result.
type Moderator interface {
	Moderate(ctx context.Context, image []byte) pipeline.Result
}

// Server wraps the HTTP components for Seemly.
type Server struct {
	mux       *http.ServeMux
	cfg       *config.Config
	auth      *auth.Auth
	moderator Moderator
	store     *verdictStore
	audit     *audit.Emitter
	telemetry *telemetry.Provider
	logger    *slog.Logger
}

// Options collects the server's collaborators. Audit and Telemetry may
// be nil.
type Options struct {
	Auth      *auth.Auth
	Moderator Moderator
	Audit     *audit.Emitter
	Telemetry *telemetry.Provider
	Logger    *slog.Logger
}

// New creates a Seemly server with all routes registered.
func New(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		auth:      opts.Auth,
		moderator: opts.Moderator,
		store:     newVerdictStore(time.Duration(cfg.Limits.StoreTTLMinutes) * time.Minute),
		audit:     opts.Audit,
		telemetry: opts.Telemetry,
		logger:    logger,
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/moderations", s.handleModerations)
	s.mux.HandleFunc("/v1/moderations/", s.handleModerationStatus)

	return s
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("seemly listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// writeError writes the JSON error envelope.
func writeError(w http.ResponseWriter, status int, message, typ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{Message: message, Type: typ},
	})
}

// parseBearerToken extracts the token from an Authorization: Bearer header.
func parseBearerToken(h string) (string, bool) {
	if h == "" {
		return "", false
	}
	parts := strings.Fields(h)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// authenticate resolves the caller's project. An open deployment (no
// projects configured) resolves to the empty project.
func (s *Server) authenticate(r *http.Request) (auth.Project, bool) {
	if s.auth.Open() {
		return auth.Project{}, true
	}
	apiKey, ok := parseBearerToken(r.Header.Get("Authorization"))
	if !ok || apiKey == "" {
		return auth.Project{}, false
	}
	return s.auth.Lookup(apiKey)
}
