// Package executor plays workflow definitions against a UI sink, one step
// at a time, pausing for each step's delay.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/metrics"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Executor plays workflows. It holds no per-run state, so concurrent runs on
// separate sinks proceed independently; a sink must not be shared by two
// runs at once.
type Executor struct {
	clock   Clock
	journal Journal
	metrics *metrics.Metrics
	logger  zerolog.Logger
	newID   func() string
}

// Option configures an Executor.
type Option func(*Executor)

func WithClock(c Clock) Option {
	return func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithJournal(j Journal) Option {
	return func(e *Executor) { e.journal = j }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(f func() string) Option {
	return func(e *Executor) {
		if f != nil {
			e.newID = f
		}
	}
}

func New(opts ...Option) *Executor {
	e := &Executor{
		clock:  RealClock(),
		logger: zerolog.Nop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run dispatches def's steps in order. Before each dispatch it waits the
// step's delay on the clock. An unknown action type or a sink error halts
// the run; a cancelled ctx stops it. Nothing is retried or rolled back.
func (e *Executor) Run(ctx context.Context, def workflow.Definition, sink Sink) Report {
	r := Report{
		RunID:     e.newID(),
		Workflow:  def.Name,
		Total:     len(def.Actions),
		StartedAt: e.clock.Now(),
	}
	log := e.logger.With().Str("run_id", r.RunID).Str("workflow", def.Name).Logger()

	if e.journal != nil {
		if err := e.journal.StartRun(ctx, r); err != nil {
			log.Warn().Err(err).Msg("journal start failed")
		}
	}

	r.Status, r.Err = e.play(ctx, log, r.RunID, def, sink, &r.Dispatched)
	r.FinishedAt = e.clock.Now()
	if r.Err != nil {
		r.Error = r.Err.Error()
	}

	e.metrics.WorkflowRun(string(r.Status))
	if e.journal != nil {
		// Record the outcome even when ctx was cancelled.
		if err := e.journal.FinishRun(context.WithoutCancel(ctx), r); err != nil {
			log.Warn().Err(err).Msg("journal finish failed")
		}
	}

	ev := log.Info()
	if r.Status != StatusCompleted {
		ev = log.Warn().Err(r.Err)
	}
	ev.Str("status", string(r.Status)).
		Int("dispatched", r.Dispatched).
		Int("total", r.Total).
		Msg("workflow run finished")
	return r
}

func (e *Executor) play(ctx context.Context, log zerolog.Logger, runID string, def workflow.Definition, sink Sink, dispatched *int) (Status, error) {
	if sink == nil {
		return StatusHalted, fmt.Errorf("%w: no sink", ErrSinkRejected)
	}
	for i, step := range def.Actions {
		if err := ctx.Err(); err != nil {
			return StatusCancelled, err
		}
		if !step.Type.Known() {
			err := fmt.Errorf("step %d: %w: %q", i, ErrUnknownAction, step.Type)
			e.record(ctx, log, runID, i, step, err)
			return StatusHalted, err
		}

		select {
		case <-ctx.Done():
			return StatusCancelled, ctx.Err()
		case <-e.clock.After(time.Duration(step.Delay) * time.Millisecond):
		}

		if err := sink.Dispatch(ctx, step.Type, step.Data); err != nil {
			if ctx.Err() != nil {
				return StatusCancelled, ctx.Err()
			}
			err = fmt.Errorf("step %d (%s): %w: %w", i, step.Type, ErrSinkRejected, err)
			e.record(ctx, log, runID, i, step, err)
			return StatusHalted, err
		}
		*dispatched++
		e.metrics.ActionDispatched(string(step.Type))
		e.record(ctx, log, runID, i, step, nil)
	}
	return StatusCompleted, nil
}

func (e *Executor) record(ctx context.Context, log zerolog.Logger, runID string, i int, step workflow.ActionStep, stepErr error) {
	if stepErr != nil {
		log.Error().Err(stepErr).Int("step", i).Str("action", string(step.Type)).Msg("workflow halted")
	} else {
		log.Debug().Int("step", i).Str("action", string(step.Type)).Int("delay_ms", step.Delay).Msg("action dispatched")
	}
	if e.journal == nil {
		return
	}
	rec := StepRecord{
		Index: i,
		Type:  step.Type,
		Data:  step.Data,
		Delay: step.Delay,
		At:    e.clock.Now(),
	}
	if stepErr != nil {
		rec.Error = stepErr.Error()
	}
	if err := e.journal.RecordStep(context.WithoutCancel(ctx), runID, rec); err != nil {
		log.Warn().Err(err).Int("step", i).Msg("journal step failed")
	}
}
