package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/executor"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalRecordsExecutorRun(t *testing.T) {
	j := openTestJournal(t)
	clock := &stepClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := executor.New(executor.WithJournal(j), executor.WithClock(clock))

	def, err := workflow.SymptomTracker("I have a headache, it's pretty bad")
	require.NoError(t, err)

	ctx := context.Background()
	var applied int
	sink := executor.SinkFunc(func(context.Context, workflow.ActionType, workflow.ActionData) error {
		applied++
		return nil
	})
	report := e.Run(ctx, def, sink)
	require.Equal(t, executor.StatusCompleted, report.Status)

	run, err := j.Run(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, def.Name, run.Workflow)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, len(def.Actions), run.Total)
	assert.Equal(t, applied, run.Dispatched)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 7500*time.Millisecond, run.FinishedAt.Sub(run.StartedAt))

	require.Len(t, run.Steps, len(def.Actions))
	assert.Equal(t, workflow.ActionSetField, run.Steps[2].Type)
	assert.Equal(t, "headache", run.Steps[2].Data.Value)
	assert.Equal(t, 1500, run.Steps[3].Delay)
	assert.Empty(t, run.Steps[3].Error)
}

func TestJournalRecordsHaltedRun(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	e := executor.New(executor.WithJournal(j), executor.WithClock(&stepClock{now: time.Unix(0, 0)}))

	def := workflow.Definition{
		Name: "halts",
		Actions: []workflow.ActionStep{
			{Type: workflow.ActionRevealTool, Data: workflow.ActionData{Tool: "T"}},
			{Type: workflow.ActionUpdateGuidance, Data: workflow.ActionData{Text: "x"}, Delay: 10},
		},
	}
	calls := 0
	sink := executor.SinkFunc(func(context.Context, workflow.ActionType, workflow.ActionData) error {
		calls++
		if calls == 2 {
			return errors.New("closed")
		}
		return nil
	})
	report := e.Run(ctx, def, sink)
	require.Equal(t, executor.StatusHalted, report.Status)

	run, err := j.Run(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, "halted", run.Status)
	assert.Equal(t, 1, run.Dispatched)
	assert.Contains(t, run.Error, "closed")
	require.Len(t, run.Steps, 2)
	assert.Contains(t, run.Steps[1].Error, "closed")
}

func TestJournalRecentAndMissing(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		r := executor.Report{RunID: id, Workflow: "wf-" + id, Total: 1, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, j.StartRun(ctx, r))
	}

	runs, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "running", runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, "b", runs[1].ID)

	_, err = j.Run(ctx, "zzz")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = j.FinishRun(ctx, executor.Report{RunID: "zzz", Status: executor.StatusCompleted})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestJournalPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.StartRun(ctx, executor.Report{RunID: "r1", Workflow: "wf", Total: 2, StartedAt: time.Now()}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	run, err := j.Run(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "wf", run.Workflow)

	_, err = Open("  ")
	assert.Error(t, err)
}
