package converse

import (
	"context"
	"testing"

	"github.com/golovatskygroup/journey-lens/internal/conversation"
	"github.com/golovatskygroup/journey-lens/internal/failure"
	"github.com/golovatskygroup/journey-lens/internal/orchestrator"
	"github.com/golovatskygroup/journey-lens/internal/presets"
	"github.com/golovatskygroup/journey-lens/internal/router"
	"github.com/golovatskygroup/journey-lens/internal/testutil"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeline(t *testing.T, search *testutil.StubSearcher) *router.Pipeline {
	t.Helper()
	p, err := router.New(router.Services{
		Search:   search,
		Calc:     &testutil.StubEvaluator{Results: map[string]string{"2 + 2 * 3": "8"}},
		Analysis: &testutil.StubAnalyzer{Fixed: "looks fine"},
	})
	require.NoError(t, err)
	return p
}

func newOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	o, err := orchestrator.New(presets.Default(), workflow.Default())
	require.NoError(t, err)
	return o
}

func TestRunAnswersAndActivates(t *testing.T) {
	p := newPipeline(t, &testutil.StubSearcher{Result: "1. **Guide**\n"})

	turn := Run(context.Background(), p, newOrchestrator(t), "Help me prepare for my appointment", "awareness")

	assert.Equal(t, "looks fine", turn.Response)
	assert.Equal(t, []conversation.Stage{conversation.StageRoute, conversation.StageAnalyze, conversation.StageRespond}, turn.Trace)
	assert.Empty(t, turn.Kind)
	require.NotNil(t, turn.Tool)
	assert.True(t, turn.Tool.Success)
	assert.Equal(t, "AppointmentPrepGuide", turn.Tool.Tool.Component)
}

func TestRunWithoutStageSkipsTools(t *testing.T) {
	p := newPipeline(t, &testutil.StubSearcher{})

	turn := Run(context.Background(), p, newOrchestrator(t), "2 + 2 * 3", "")
	assert.Equal(t, "**Calculation Result:** 8", turn.Response)
	assert.Nil(t, turn.Tool)

	turn = Run(context.Background(), p, nil, "2 + 2 * 3", "awareness")
	assert.Nil(t, turn.Tool)
}

func TestRunReportsFailureKind(t *testing.T) {
	p := newPipeline(t, &testutil.StubSearcher{Err: testutil.ErrStubFailure})

	turn := Run(context.Background(), p, newOrchestrator(t), "search for trials", "nowhere")

	assert.NotEmpty(t, turn.Response)
	require.NotNil(t, turn.Tool)
	assert.Equal(t, failure.KindManifestUnavailable, turn.Tool.Kind)
	assert.Equal(t, orchestrator.OutcomeFailed, turn.Tool.Outcome)
}
