// Package api provides the HTTP server of ADC Navigator.
//
// It exposes a liveness endpoint for the hosting platform and read-only
// lookups of collected leads and unanswered questions for staff tooling.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/store"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"
	// DefaultListLimit caps list endpoints without an explicit limit.
	DefaultListLimit = 50
	// MaxListLimit is the largest accepted limit.
	MaxListLimit = 500

	shutdownTimeout = 10 * time.Second
)

// Opts holds configuration for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server serves the HTTP API.
type Server struct {
	leads      store.LeadRepo
	unanswered store.UnansweredRepo
	addr       string
}

// NewServer creates a Server over the given repositories.
func NewServer(leads store.LeadRepo, unanswered store.UnansweredRepo, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{leads: leads, unanswered: unanswered, addr: cfg.Addr}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the router of all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("GET /leads", s.listLeadsHandler)
	mux.HandleFunc("GET /leads/{userID}", s.getLeadHandler)
	mux.HandleFunc("GET /unanswered", s.unansweredHandler)
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: shutdown failed", "error", err)
		return fmt.Errorf("api shutdown failed: %w", err)
	}
	slog.Info("Server.Run: API stopped")
	return nil
}
