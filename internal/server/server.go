// Package server exposes journey-lens over HTTP: the stage manifest
// endpoint, conversational turns, streamed tool demonstrations, run history
// and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golovatskygroup/journey-lens/internal/converse"
	"github.com/golovatskygroup/journey-lens/internal/journal"
	"github.com/golovatskygroup/journey-lens/internal/metrics"
	"github.com/golovatskygroup/journey-lens/internal/orchestrator"
	"github.com/golovatskygroup/journey-lens/internal/presets"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RunStore reads journaled workflow runs.
type RunStore interface {
	Run(ctx context.Context, id string) (journal.Run, error)
	Recent(ctx context.Context, limit int) ([]journal.Run, error)
}

type Server struct {
	pipeline        converse.Asker
	orch            *orchestrator.Orchestrator
	catalog         *presets.Registry
	runs            RunStore
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
	logger          zerolog.Logger
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	newID           func() string
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request latency on m and serves g at /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithRunStore enables the /v1/runs endpoints.
func WithRunStore(rs RunStore) Option {
	return func(s *Server) { s.runs = rs }
}

func WithTimeouts(request, shutdown time.Duration) Option {
	return func(s *Server) {
		if request > 0 {
			s.requestTimeout = request
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(pipeline converse.Asker, orch *orchestrator.Orchestrator, catalog *presets.Registry, opts ...Option) (*Server, error) {
	if pipeline == nil || orch == nil || catalog == nil {
		return nil, errors.New("server: pipeline, orchestrator and catalog are required")
	}
	s := &Server{
		pipeline:        pipeline,
		orch:            orch,
		catalog:         catalog,
		logger:          zerolog.Nop(),
		requestTimeout:  60 * time.Second,
		shutdownTimeout: 10 * time.Second,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/journey/{stageId}", s.handleManifest)
	if s.gatherer != nil {
		r.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/converse", s.handleConverse)
		r.Post("/demonstrate", s.handleDemonstrate)
		if s.runs != nil {
			r.Get("/runs", s.handleRecentRuns)
			r.Get("/runs/{runId}", s.handleRun)
		}
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
