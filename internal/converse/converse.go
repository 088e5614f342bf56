// Package converse runs one user turn: the routing pipeline answers the
// utterance while the tool orchestrator checks it against the stage's tools.
package converse

import (
	"context"

	"github.com/golovatskygroup/journey-lens/internal/conversation"
	"github.com/golovatskygroup/journey-lens/internal/failure"
	"github.com/golovatskygroup/journey-lens/internal/orchestrator"
	"golang.org/x/sync/errgroup"
)

// Asker answers a single utterance.
type Asker interface {
	Ask(ctx context.Context, utterance string) conversation.State
}

// Activator matches a conversation against a stage's tools.
type Activator interface {
	Activate(ctx context.Context, conversation, stage string) orchestrator.Result
}

// Turn is the combined outcome of one utterance.
type Turn struct {
	Response string               `json:"response"`
	Trace    []conversation.Stage `json:"trace"`
	Kind     failure.Kind         `json:"kind,omitempty"`
	Tool     *orchestrator.Result `json:"tool,omitempty"`
	State    conversation.State   `json:"-"`
}

// Run asks the pipeline and, when stage is set and an activator is given,
// activates a tool concurrently. Both halves always produce a result, so Run
// never fails; a cancelled ctx shows up in their results.
func Run(ctx context.Context, asker Asker, activator Activator, utterance, stage string) Turn {
	var (
		st  conversation.State
		res *orchestrator.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st = asker.Ask(gctx, utterance)
		return nil
	})
	if activator != nil && stage != "" {
		g.Go(func() error {
			r := activator.Activate(gctx, utterance, stage)
			res = &r
			return nil
		})
	}
	_ = g.Wait()

	turn := Turn{
		Response: st.FinalResponse,
		Trace:    st.Trace,
		Tool:     res,
		State:    st,
	}
	if st.Failure != nil {
		turn.Kind = st.Failure.Kind
	}
	return turn
}
