package executor

import (
	"context"
	"errors"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/workflow"
)

var (
	ErrUnknownAction = errors.New("unknown action type")
	ErrSinkRejected  = errors.New("sink rejected action")
)

// Sink is the UI surface that applies actions. The executor is its only
// writer while a run is in progress.
type Sink interface {
	Dispatch(ctx context.Context, action workflow.ActionType, data workflow.ActionData) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, action workflow.ActionType, data workflow.ActionData) error

func (f SinkFunc) Dispatch(ctx context.Context, action workflow.ActionType, data workflow.ActionData) error {
	return f(ctx, action, data)
}

// Clock paces the steps of a run.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusHalted    Status = "halted"
	StatusCancelled Status = "cancelled"
)

// Report summarizes a run. Steps before Dispatched were applied and stay
// applied whatever the status.
type Report struct {
	RunID      string    `json:"run_id"`
	Workflow   string    `json:"workflow"`
	Status     Status    `json:"status"`
	Dispatched int       `json:"dispatched"`
	Total      int       `json:"total"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
	Err        error     `json:"-"`
}

// StepRecord describes one dispatched or failed step.
type StepRecord struct {
	Index int                 `json:"index"`
	Type  workflow.ActionType `json:"type"`
	Data  workflow.ActionData `json:"data"`
	Delay int                 `json:"delay"`
	At    time.Time           `json:"at"`
	Error string              `json:"error,omitempty"`
}

// Journal records runs for auditing. Journal errors are logged and never
// affect the run.
type Journal interface {
	StartRun(ctx context.Context, r Report) error
	RecordStep(ctx context.Context, runID string, step StepRecord) error
	FinishRun(ctx context.Context, r Report) error
}
