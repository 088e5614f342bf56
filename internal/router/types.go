package router

import (
	"context"

	"github.com/golovatskygroup/journey-lens/internal/conversation"
	"github.com/golovatskygroup/journey-lens/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultMaxSteps bounds a single run. The longest legal path is
// route, search, analyze, respond.
const DefaultMaxSteps = 16

type stageFunc func(ctx context.Context, st conversation.State) conversation.State

type Option func(*Pipeline)

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithMaxSteps overrides DefaultMaxSteps. Values below 2 are ignored.
func WithMaxSteps(n int) Option {
	return func(p *Pipeline) {
		if n >= 2 {
			p.maxSteps = n
		}
	}
}
