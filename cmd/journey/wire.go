package main

import (
	"context"
	"fmt"
	"io"

	"github.com/golovatskygroup/journey-lens/internal/calc"
	"github.com/golovatskygroup/journey-lens/internal/config"
	"github.com/golovatskygroup/journey-lens/internal/executor"
	"github.com/golovatskygroup/journey-lens/internal/journal"
	"github.com/golovatskygroup/journey-lens/internal/llm"
	"github.com/golovatskygroup/journey-lens/internal/logging"
	"github.com/golovatskygroup/journey-lens/internal/manifest"
	"github.com/golovatskygroup/journey-lens/internal/metrics"
	"github.com/golovatskygroup/journey-lens/internal/orchestrator"
	"github.com/golovatskygroup/journey-lens/internal/presets"
	"github.com/golovatskygroup/journey-lens/internal/router"
	"github.com/golovatskygroup/journey-lens/internal/search"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// stack is every long-lived component built from a Config.
type stack struct {
	cfg      config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	catalog  *presets.Registry
	fetcher  manifest.Fetcher
	pipeline *router.Pipeline
	orch     *orchestrator.Orchestrator
	journal  *journal.Journal
}

// unavailableCompleter stands in for the model when it is not configured, so
// analysis degrades to the pipeline's apology text instead of failing startup.
type unavailableCompleter struct{ err error }

func (u unavailableCompleter) ChatCompletionText(context.Context, string, string) (string, string, error) {
	return "", "", u.err
}

func buildStack(cfg config.Config, logOut io.Writer) (*stack, error) {
	logCfg := cfg.Log
	if logOut != nil {
		logCfg.Output = logOut
	}
	logger := logging.New(logCfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	catalog, err := presets.LoadFile(cfg.Manifest.PresetsFile)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	var fetcher manifest.Fetcher = catalog
	if cfg.Manifest.BaseURL != "" {
		fetcher = manifest.NewClient(cfg.Manifest.BaseURL,
			manifest.WithCache(cfg.HTTPCache),
			manifest.WithLogger(logging.Component(logger, "manifest")),
		)
	}

	backend := search.NewTavilyClientWithKey(cfg.Search.APIKey).WithBaseURL(cfg.Search.BaseURL)
	searcher := search.NewClient(
		search.WithBackend(backend),
		search.WithCache(search.NewInMemoryCache(cfg.Search.CacheSize)),
		search.WithCacheTTL(cfg.Search.CacheTTL),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithLogger(logging.Component(logger, "search")),
	)

	var completer llm.Completer
	if client, err := llm.NewClient(cfg.LLM); err != nil {
		logger.Warn().Err(err).Msg("analysis model not configured")
		completer = unavailableCompleter{err: err}
	} else {
		completer = client
	}

	pipeline, err := router.New(router.Services{
		Search:   searcher,
		Calc:     calc.New(cfg.Calc),
		Analysis: llm.NewAnalyzer(completer, logging.Component(logger, "llm")),
	}, router.WithLogger(logging.Component(logger, "router")), router.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	s := &stack{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  m,
		catalog:  catalog,
		fetcher:  fetcher,
		pipeline: pipeline,
	}

	execOpts := []executor.Option{
		executor.WithLogger(logging.Component(logger, "executor")),
		executor.WithMetrics(m),
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		s.journal = j
		execOpts = append(execOpts, executor.WithJournal(j))
	}

	s.orch, err = orchestrator.New(fetcher, workflow.Default(),
		orchestrator.WithLogger(logging.Component(logger, "orchestrator")),
		orchestrator.WithMetrics(m),
		orchestrator.WithExecutor(executor.New(execOpts...)),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *stack) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}
