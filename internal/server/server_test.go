package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/executor"
	"github.com/golovatskygroup/journey-lens/internal/journal"
	"github.com/golovatskygroup/journey-lens/internal/manifest"
	"github.com/golovatskygroup/journey-lens/internal/metrics"
	"github.com/golovatskygroup/journey-lens/internal/orchestrator"
	"github.com/golovatskygroup/journey-lens/internal/presets"
	"github.com/golovatskygroup/journey-lens/internal/router"
	"github.com/golovatskygroup/journey-lens/internal/testutil"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
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

type fixture struct {
	handler http.Handler
	journal *journal.Journal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p, err := router.New(router.Services{
		Search:   &testutil.StubSearcher{Result: "1. **Result**\n"},
		Calc:     &testutil.StubEvaluator{Results: map[string]string{"2 + 2 * 3": "8"}},
		Analysis: &testutil.StubAnalyzer{},
	})
	require.NoError(t, err)

	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	exec := executor.New(executor.WithClock(instantClock{}), executor.WithJournal(j), executor.WithMetrics(m))
	catalog := presets.Default()
	o, err := orchestrator.New(catalog, workflow.Default(), orchestrator.WithExecutor(exec), orchestrator.WithMetrics(m))
	require.NoError(t, err)

	s, err := New(p, o, catalog,
		WithMetrics(m, reg),
		WithRunStore(j),
		WithIDGenerator(func() string { return "req-1" }),
	)
	require.NoError(t, err)
	return &fixture{handler: s.Handler(), journal: j}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthListsStages(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Status string         `json:"status"`
		Stages []stageSummary `json:"stages"`
	}](t, rec)
	assert.Equal(t, "ok", body.Status)
	require.Len(t, body.Stages, len(presets.Default().Stages()))
	assert.Equal(t, "awareness", body.Stages[0].Stage)
	assert.Positive(t, body.Stages[0].Tools)
}

func TestManifestEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/journey/awareness", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	m := decode[manifest.StageManifest](t, rec)
	assert.Equal(t, "awareness", m.Stage)
	assert.NotEmpty(t, m.StageName)
	assert.NotEmpty(t, m.Tools)

	rec = f.do(t, http.MethodGet, "/journey/unknown_stage", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Journey stage manifest for 'unknown_stage' not found.", decode[map[string]string](t, rec)["detail"])
}

func TestConverse(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/converse", `{"utterance":"2 + 2 * 3","stage":"awareness"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[struct {
		RequestID string               `json:"request_id"`
		Response  string               `json:"response"`
		Trace     []string             `json:"trace"`
		Tool      *orchestrator.Result `json:"tool"`
	}](t, rec)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Equal(t, "**Calculation Result:** 8", body.Response)
	assert.Equal(t, []string{"route", "calculate", "respond"}, body.Trace)
	require.NotNil(t, body.Tool)
	assert.Equal(t, orchestrator.OutcomeNoTool, body.Tool.Outcome)
}

func TestConverseRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/converse", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/converse", `{"utterance":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "utterance is required", decode[map[string]string](t, rec)["detail"])
}

func TestDemonstrateStreamsWorkflow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/demonstrate", `{"utterance":"I have a headache and some pain, it's pretty bad","stage":"awareness"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: result\ndata: "), body)
	assert.Equal(t, 6, strings.Count(body, "event: action\n"))
	assert.Contains(t, body, `"symptom":"headache"`)
	assert.Contains(t, body, `"severity":"6"`)
	assert.Contains(t, body, "event: panel\n")
	assert.Contains(t, body, "event: report\n")
	assert.Contains(t, body, `"status":"completed"`)

	runs, err := f.journal.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Real-time Symptom Tracker", runs[0].Workflow)
}

func TestDemonstrateWithoutMatch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/demonstrate", `{"utterance":"hello there","stage":"awareness"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"outcome":"no_tool"`)
	assert.NotContains(t, body, "event: action")
	assert.NotContains(t, body, "event: report")

	rec = f.do(t, http.MethodPost, "/v1/demonstrate", `{"utterance":"pain"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "stage is required", decode[map[string]string](t, rec)["detail"])
}

func TestRunEndpoints(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/demonstrate", `{"utterance":"I need to prepare for my appointment","stage":"awareness"}`)

	rec := f.do(t, http.MethodGet, "/v1/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Runs []journal.Run `json:"runs"`
	}](t, rec)
	require.Len(t, list.Runs, 1)

	rec = f.do(t, http.MethodGet, "/v1/runs/"+list.Runs[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[journal.Run](t, rec)
	assert.Equal(t, "completed", run.Status)
	assert.Len(t, run.Steps, run.Total)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/runs/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/runs?limit=zero", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/journey/awareness", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `journey_lens_http_request_duration_seconds_count{code="200",method="GET",route="/journey/{stageId}"} 1`)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)
}
