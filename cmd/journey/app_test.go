package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/golovatskygroup/journey-lens/internal/converse"
	"github.com/golovatskygroup/journey-lens/internal/orchestrator"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JOURNEY_LENS_PRESETS_FILE", "")
	t.Setenv("JOURNEY_LENS_MANIFEST_URL", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).executeWithArgs(context.Background(), args)
	return stdout.String(), err
}

func TestWorkflowsCheck(t *testing.T) {
	out, err := run(t, "workflows", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog components have workflows")
}

func TestWorkflowsShow(t *testing.T) {
	out, err := run(t, "workflows", "AppointmentPrepGuide")
	require.NoError(t, err)
	assert.Contains(t, out, "field: primary_concern")

	out, err = run(t, "workflows", "SymptomTracker", "--conversation", "I have a headache, it's pretty bad")
	require.NoError(t, err)
	assert.Contains(t, out, "value: headache")

	_, err = run(t, "workflows", "NoSuchTool")
	assert.ErrorIs(t, err, workflow.ErrUnregistered)
}

func TestWorkflowsList(t *testing.T) {
	out, err := run(t, "workflows")
	require.NoError(t, err)
	assert.Contains(t, out, "SymptomTracker")
	assert.Contains(t, out, "Real-time Symptom Tracker")
}

func TestToolsCommand(t *testing.T) {
	out, err := run(t, "tools", "--stage", "awareness")
	require.NoError(t, err)
	assert.Contains(t, out, "Symptom Tracking Tool")
	assert.Contains(t, out, "AppointmentPrepGuide")

	out, err = run(t, "tools", "--stage", "awareness", "prepare", "for", "my", "appointment")
	require.NoError(t, err)
	assert.Contains(t, out, `matches "appointment"`)
}

func TestAskCalculates(t *testing.T) {
	out, err := run(t, "ask", "2 + 2 * 3")
	require.NoError(t, err)
	assert.Contains(t, out, "**Calculation Result:** 8")
}

func TestAskActivatesTool(t *testing.T) {
	out, err := run(t, "ask", "--json", "--stage", "awareness", "I need to prepare for my appointment")
	require.NoError(t, err)

	var turn converse.Turn
	require.NoError(t, json.Unmarshal([]byte(out), &turn), out)
	require.NotNil(t, turn.Tool)
	assert.Equal(t, orchestrator.OutcomeActivated, turn.Tool.Outcome)
	assert.Equal(t, "AppointmentPrepGuide", turn.Tool.Tool.Component)
	assert.NotEmpty(t, turn.Response)
}

func TestAskDemoNeedsStage(t *testing.T) {
	_, err := run(t, "ask", "--demo", "hello")
	assert.Error(t, err)
}
