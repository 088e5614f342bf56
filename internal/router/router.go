// Package router classifies a user utterance and drives it through the
// search, calculate, analyze and respond stages until it is completed.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/golovatskygroup/journey-lens/internal/conversation"
	"github.com/golovatskygroup/journey-lens/internal/failure"
	"github.com/golovatskygroup/journey-lens/internal/metrics"
	"github.com/rs/zerolog"
)

type Pipeline struct {
	svc      Services
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	maxSteps int
	stages   map[conversation.Stage]stageFunc
}

// New builds a pipeline over svc. All three services are required.
func New(svc Services, opts ...Option) (*Pipeline, error) {
	if svc.Search == nil || svc.Calc == nil || svc.Analysis == nil {
		return nil, fmt.Errorf("router: search, calc and analysis services are required")
	}
	p := &Pipeline{
		svc:      svc,
		logger:   zerolog.Nop(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stages = map[conversation.Stage]stageFunc{
		conversation.StageRoute:     p.route,
		conversation.StageSearch:    p.search,
		conversation.StageCalculate: p.calculate,
		conversation.StageAnalyze:   p.analyze,
		conversation.StageRespond:   p.respond,
		conversation.StageError:     p.fail,
	}
	return p, nil
}

// Ask runs the pipeline on a fresh state holding utterance.
func (p *Pipeline) Ask(ctx context.Context, utterance string) conversation.State {
	return p.Run(ctx, conversation.New(utterance))
}

// Run drives st from route to completed. It always returns a completed state
// with a non-empty FinalResponse; the input state is left untouched.
func (p *Pipeline) Run(ctx context.Context, st conversation.State) conversation.State {
	if st.Completed() {
		return st.Clone()
	}
	cur := st.WithStage(conversation.StageRoute)

	for steps := 0; !cur.Completed(); steps++ {
		stage := cur.CurrentStage
		if steps >= p.maxSteps && stage != conversation.StageError {
			p.logger.Error().Int("steps", steps).Str("stage", string(stage)).Msg("pipeline step limit reached")
			cur = cur.WithFailure(failure.New(failure.KindInvalidInput, "router.run", msgGenericFailure,
				fmt.Errorf("step limit %d reached at stage %q", p.maxSteps, stage)))
			stage = conversation.StageError
		}

		fn, ok := p.stages[stage]
		if !ok {
			p.logger.Error().Str("stage", string(stage)).Msg("unknown pipeline stage")
			cur = cur.WithFailure(failure.New(failure.KindInvalidInput, "router.run", msgGenericFailure,
				fmt.Errorf("unknown stage %q", stage)))
			continue
		}

		p.metrics.StageExecuted(string(stage))
		p.logger.Debug().Str("stage", string(stage)).Msg("executing stage")
		cur = fn(ctx, cur.WithTrace(stage))
	}
	return cur
}

func (p *Pipeline) route(_ context.Context, st conversation.State) conversation.State {
	last, ok := st.LastMessage()
	if !ok || last.Role != conversation.RoleUser {
		return st.WithFailure(failure.New(failure.KindInvalidInput, "router.route", msgInvalidInput, nil))
	}

	next := Classify(last.Content)
	p.logger.Info().Str("next", string(next)).Msg("routed request")
	return st.WithMessage(conversation.RoleAssistant, routeAck(string(next))).WithStage(next)
}

func (p *Pipeline) search(ctx context.Context, st conversation.State) conversation.State {
	user, ok := st.LastUserMessage()
	if !ok {
		return st.WithFailure(failure.New(failure.KindMissingInput, "router.search", msgNoSearchQuery, nil))
	}

	results, err := p.svc.Search.Search(ctx, user.Content)
	if err != nil {
		p.serviceFailed("search", err)
		results = searchErrorText
	}
	if strings.TrimSpace(results) == "" {
		results = searchErrorText
	}

	next, ok := p.store(st, conversation.FieldSearchResults, results)
	if !ok {
		return next
	}
	return next.WithMessage(conversation.RoleAssistant, msgSearchDone).WithStage(conversation.StageAnalyze)
}

func (p *Pipeline) calculate(ctx context.Context, st conversation.State) conversation.State {
	user, ok := st.LastUserMessage()
	if !ok {
		return st.WithFailure(failure.New(failure.KindMissingInput, "router.calculate", msgNoExpression, nil))
	}

	expr := ExtractExpression(user.Content)
	result, err := p.svc.Calc.Evaluate(ctx, expr)
	if err != nil {
		p.logger.Warn().Err(err).Str("expression", expr).Msg("calculation failed")
		p.metrics.ServiceFailed("calc")
		result = calculationErrorText(err)
	}

	next, ok := p.store(st, conversation.FieldCalculationResults, result)
	if !ok {
		return next
	}
	return next.WithMessage(conversation.RoleAssistant, calculationDone(result)).WithStage(conversation.StageRespond)
}

func (p *Pipeline) analyze(ctx context.Context, st conversation.State) conversation.State {
	user, ok := st.LastUserMessage()
	if !ok {
		return st.WithFailure(failure.New(failure.KindMissingInput, "router.analyze", msgNoContent, nil))
	}

	text, label := user.Content, contextDirect
	if st.SearchResults != "" {
		text, label = st.SearchResults, contextSearch
	}

	analysis := p.runAnalysis(ctx, text, label)
	next, ok := p.store(st, conversation.FieldAnalysis, analysis)
	if !ok {
		return next
	}
	return next.WithMessage(conversation.RoleAssistant, msgAnalysisDone).WithStage(conversation.StageRespond)
}

func (p *Pipeline) respond(ctx context.Context, st conversation.State) conversation.State {
	var final string
	switch {
	case st.SearchResults != "" && st.Analysis != "":
		final = searchAndAnalysisResponse(st.Analysis, st.SearchResults)
	case st.CalculationResults != "":
		final = calculationResponse(st.CalculationResults)
	case st.Analysis != "":
		final = st.Analysis
	default:
		input := defaultGreeting
		if user, ok := st.LastUserMessage(); ok && strings.TrimSpace(user.Content) != "" {
			input = user.Content
		}
		final = p.runAnalysis(ctx, input, contextFallback)
	}
	return p.complete(st, final)
}

func (p *Pipeline) fail(_ context.Context, st conversation.State) conversation.State {
	text := st.FinalResponse
	if text == "" && st.Failure != nil {
		p.logger.Warn().Err(st.Failure).Str("kind", string(st.Failure.Kind)).Msg("pipeline failed")
		text = st.Failure.Message
	}
	if strings.TrimSpace(text) == "" {
		text = msgGenericFailure
	}
	return p.complete(st, text)
}

func (p *Pipeline) complete(st conversation.State, final string) conversation.State {
	if strings.TrimSpace(final) == "" {
		final = msgGenericFailure
	}
	next, err := st.Set(conversation.FieldFinalResponse, final)
	if err != nil {
		// A populated FinalResponse always wins.
		final = st.FinalResponse
		next = st
	}
	return next.WithMessage(conversation.RoleAssistant, final).WithStage(conversation.StageCompleted)
}

func (p *Pipeline) runAnalysis(ctx context.Context, text, label string) string {
	out, err := p.svc.Analysis.Analyze(ctx, text, label)
	if err != nil {
		p.serviceFailed("analysis", err)
		return analysisErrorText
	}
	if strings.TrimSpace(out) == "" {
		return analysisErrorText
	}
	return out
}

// store writes a payload field, routing write-once violations to the error stage.
func (p *Pipeline) store(st conversation.State, field conversation.Field, value string) (conversation.State, bool) {
	next, err := st.Set(field, value)
	if err != nil {
		p.logger.Error().Err(err).Str("field", string(field)).Msg("refusing to overwrite state field")
		return st.WithFailure(failure.New(failure.KindInvalidInput, "router.store", msgGenericFailure, err)), false
	}
	return next, true
}

func (p *Pipeline) serviceFailed(service string, err error) {
	p.metrics.ServiceFailed(service)
	p.logger.Warn().Err(failure.New(failure.KindServiceFailure, "router."+service, "", err)).
		Str("service", service).Msg("external service failed")
}
