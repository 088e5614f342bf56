package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/executor"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Unix(0, 0) }

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Unix(0, 0)
	return ch
}

func TestPanelAppliesActions(t *testing.T) {
	p := NewPanel()
	ctx := context.Background()

	require.NoError(t, p.Dispatch(ctx, workflow.ActionRevealTool, workflow.ActionData{Tool: "SymptomTracker", Text: "hello"}))
	require.NoError(t, p.Dispatch(ctx, workflow.ActionSetField, workflow.ActionData{Field: "symptom", Value: "headache"}))
	require.NoError(t, p.Dispatch(ctx, workflow.ActionAppendToList, workflow.ActionData{List: "notes", Value: "a"}))
	require.NoError(t, p.Dispatch(ctx, workflow.ActionAppendToList, workflow.ActionData{List: "notes", Value: "b"}))
	require.NoError(t, p.Dispatch(ctx, workflow.ActionUpdateGuidance, workflow.ActionData{Text: "done"}))

	st := p.Snapshot()
	assert.Equal(t, "SymptomTracker", st.Tool)
	assert.Equal(t, "done", st.Guidance)
	assert.Equal(t, map[string]string{"symptom": "headache"}, st.Fields)
	assert.Equal(t, []string{"a", "b"}, st.Lists["notes"])

	// Snapshots are detached from the panel.
	st.Lists["notes"][0] = "changed"
	assert.Equal(t, "a", p.Snapshot().Lists["notes"][0])

	// Revealing another tool resets the panel.
	require.NoError(t, p.Dispatch(ctx, workflow.ActionRevealTool, workflow.ActionData{Tool: "Other"}))
	assert.Empty(t, p.Snapshot().Fields)
}

func TestPanelRejects(t *testing.T) {
	p := NewPanel()
	ctx := context.Background()

	err := p.Dispatch(ctx, workflow.ActionSetField, workflow.ActionData{Field: "x", Value: "y"})
	assert.ErrorIs(t, err, ErrNoActiveTool)

	require.NoError(t, p.Dispatch(ctx, workflow.ActionRevealTool, workflow.ActionData{Tool: "T"}))
	err = p.Dispatch(ctx, "blink", workflow.ActionData{})
	assert.ErrorIs(t, err, ErrUnsupportedAction)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, p.Dispatch(cancelled, workflow.ActionUpdateGuidance, workflow.ActionData{Text: "x"}), context.Canceled)
}

func TestExecutorHaltsWhenPanelRejects(t *testing.T) {
	def := workflow.Definition{
		Name: "out of order",
		Actions: []workflow.ActionStep{
			{Type: workflow.ActionSetField, Data: workflow.ActionData{Field: "x", Value: "1"}},
			{Type: workflow.ActionRevealTool, Data: workflow.ActionData{Tool: "T"}},
		},
	}
	p := NewPanel()
	r := executor.New(executor.WithClock(instantClock{})).Run(context.Background(), def, p)

	assert.Equal(t, executor.StatusHalted, r.Status)
	assert.ErrorIs(t, r.Err, executor.ErrSinkRejected)
	assert.ErrorIs(t, r.Err, ErrNoActiveTool)
	assert.Empty(t, p.Snapshot().Tool)
}

func TestAppointmentPrepGuideFillsPanel(t *testing.T) {
	def, err := workflow.Default().Resolve("AppointmentPrepGuide", "")
	require.NoError(t, err)

	p := NewPanel()
	var buf bytes.Buffer
	lines := NewJSONLines(&buf)
	r := executor.New(executor.WithClock(instantClock{})).Run(context.Background(), def, Tee(p, lines))
	require.Equal(t, executor.StatusCompleted, r.Status, r.Error)

	st := p.Snapshot()
	assert.Equal(t, "AppointmentPrepGuide", st.Tool)
	assert.Equal(t, "Persistent fatigue and occasional dizziness over the last 3 weeks.", st.Fields["primary_concern"])
	assert.Len(t, st.Lists["questions"], 3)

	sc := bufio.NewScanner(&buf)
	var events []Event
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, len(def.Actions))
	assert.Equal(t, 1, events[0].Seq)
	assert.Equal(t, workflow.ActionRevealTool, events[0].Type)
	assert.Equal(t, len(def.Actions), events[len(events)-1].Seq)
}

func TestMultiStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	count := executor.SinkFunc(func(context.Context, workflow.ActionType, workflow.ActionData) error {
		calls++
		return nil
	})
	fail := executor.SinkFunc(func(context.Context, workflow.ActionType, workflow.ActionData) error {
		return boom
	})

	err := Tee(count, fail, count).Dispatch(context.Background(), workflow.ActionUpdateGuidance, workflow.ActionData{Text: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestSSEStream(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := NewSSE(rec)
	require.NoError(t, err)

	require.NoError(t, s.Dispatch(context.Background(), workflow.ActionRevealTool, workflow.ActionData{Tool: "T"}))
	require.NoError(t, s.Send("report", map[string]string{"status": "completed"}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "id: 1\nevent: action\ndata: {\"seq\":1,\"type\":\"reveal_tool\""), body)
	assert.Contains(t, body, "event: report\ndata: {\"status\":\"completed\"}\n\n")
}
