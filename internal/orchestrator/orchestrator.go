// Package orchestrator decides which journey tool a conversation activates
// and resolves the workflow that demonstrates it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golovatskygroup/journey-lens/internal/executor"
	"github.com/golovatskygroup/journey-lens/internal/failure"
	"github.com/golovatskygroup/journey-lens/internal/manifest"
	"github.com/golovatskygroup/journey-lens/internal/metrics"
	"github.com/golovatskygroup/journey-lens/internal/registry"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/rs/zerolog"
)

// Outcome tells activated, no-tool and failed results apart.
type Outcome string

const (
	OutcomeActivated Outcome = "activated"
	OutcomeNoTool    Outcome = "no_tool"
	OutcomeFailed    Outcome = "failed"
)

const (
	msgManifestUnavailable = "Sorry, I couldn't load the tools for this stage right now. Please try again in a moment."
	msgNoTool              = "I didn't find a tool in this stage for that. You can keep chatting or ask about a specific tool."
	msgUnresolved          = "Sorry, I couldn't open %s right now. Please try again in a moment."
	msgActivated           = "Opening %s for you now."
)

// Result is the structured answer of Activate. Success is true only for
// OutcomeActivated.
type Result struct {
	Outcome     Outcome                  `json:"outcome"`
	Success     bool                     `json:"success"`
	Message     string                   `json:"message"`
	Stage       string                   `json:"stage"`
	Kind        failure.Kind             `json:"kind,omitempty"`
	Tool        *manifest.ToolDescriptor `json:"tool,omitempty"`
	Trigger     string                   `json:"trigger,omitempty"`
	Workflow    *workflow.Definition     `json:"workflow,omitempty"`
	Suggestions []registry.Suggestion    `json:"suggestions,omitempty"`
	Err         error                    `json:"-"`
}

// Resolver turns a component name into a workflow for a conversation.
type Resolver interface {
	Resolve(component, conversation string) (workflow.Definition, error)
}

type Orchestrator struct {
	fetcher      manifest.Fetcher
	workflows    Resolver
	exec         *executor.Executor
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	suggestLimit int
}

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithExecutor sets the executor Demonstrate plays workflows on.
func WithExecutor(e *executor.Executor) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.exec = e
		}
	}
}

// WithSuggestions sets how many near-miss tools a no-tool result carries.
// Zero disables suggestions.
func WithSuggestions(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.suggestLimit = n
		}
	}
}

func New(fetcher manifest.Fetcher, workflows Resolver, opts ...Option) (*Orchestrator, error) {
	if fetcher == nil || workflows == nil {
		return nil, errors.New("orchestrator: fetcher and workflow resolver are required")
	}
	o := &Orchestrator{
		fetcher:      fetcher,
		workflows:    workflows,
		logger:       zerolog.Nop(),
		suggestLimit: 3,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.exec == nil {
		o.exec = executor.New(executor.WithLogger(o.logger), executor.WithMetrics(o.metrics))
	}
	return o, nil
}

// Activate fetches the stage's tools, picks the first tool whose trigger
// occurs in conversation and resolves its workflow. It never panics and
// never returns an error; failures are reported in the Result.
func (o *Orchestrator) Activate(ctx context.Context, conversation, stage string) (res Result) {
	res = Result{Stage: stage}
	log := o.logger.With().Str("stage", stage).Logger()
	defer func() {
		o.metrics.ToolActivation(string(res.Outcome))
	}()

	tools := o.fetcher.Fetch(ctx, stage)
	if len(tools) == 0 {
		log.Warn().Msg("no tools available for stage")
		return failed(res, failure.New(failure.KindManifestUnavailable, "orchestrator.activate", msgManifestUnavailable,
			fmt.Errorf("empty manifest for stage %q", stage)))
	}

	match, ok := registry.FindTool(tools, conversation)
	if !ok {
		res.Outcome = OutcomeNoTool
		res.Message = msgNoTool
		if o.suggestLimit > 0 {
			res.Suggestions = registry.Suggest(tools, conversation, o.suggestLimit)
		}
		if len(res.Suggestions) > 0 {
			names := make([]string, 0, len(res.Suggestions))
			for _, s := range res.Suggestions {
				names = append(names, s.Tool.Name)
			}
			log.Info().Strs("near_misses", names).Msg("no trigger matched")
		} else {
			log.Debug().Msg("no trigger matched")
		}
		return res
	}

	tool := match.Tool
	res.Tool = &tool
	res.Trigger = match.Trigger
	log = log.With().Str("tool", tool.Name).Str("component", tool.Component).Str("trigger", match.Trigger).Logger()

	def, err := o.resolve(tool.Component, conversation)
	if err != nil {
		log.Error().Err(err).Msg("workflow resolution failed")
		return failed(res, failure.New(failure.KindUnresolvedWorkflow, "orchestrator.activate",
			fmt.Sprintf(msgUnresolved, displayName(tool)), err))
	}

	res.Outcome = OutcomeActivated
	res.Success = true
	res.Message = fmt.Sprintf(msgActivated, displayName(tool))
	res.Workflow = &def
	log.Info().Int("steps", len(def.Actions)).Msg("tool activated")
	return res
}

// resolve shields Activate from panicking factories.
func (o *Orchestrator) resolve(component, conversation string) (def workflow.Definition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workflow factory for %s panicked: %v", component, r)
		}
	}()
	return o.workflows.Resolve(component, conversation)
}

// Demonstrate activates a tool and plays its workflow on sink. The report
// is nil unless a workflow was played.
func (o *Orchestrator) Demonstrate(ctx context.Context, conversation, stage string, sink executor.Sink) (Result, *executor.Report) {
	res := o.Activate(ctx, conversation, stage)
	return res, o.Play(ctx, res, sink)
}

// Play runs the workflow of an activated result on sink. It returns nil for
// results that carry no workflow.
func (o *Orchestrator) Play(ctx context.Context, res Result, sink executor.Sink) *executor.Report {
	if !res.Success || res.Workflow == nil {
		return nil
	}
	report := o.exec.Run(ctx, *res.Workflow, sink)
	return &report
}

func failed(res Result, err *failure.Error) Result {
	res.Outcome = OutcomeFailed
	res.Success = false
	res.Kind = err.Kind
	res.Message = err.Message
	res.Err = err
	return res
}

func displayName(t manifest.ToolDescriptor) string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return t.Component
}
