package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.StageExecuted("route")
	m.StageExecuted("route")
	m.ActionDispatched("set_field")
	m.WorkflowRun("completed")
	m.ToolActivation("no_tool")
	m.ServiceFailed("search")
	m.HTTPRequest("GET", "/journey/{stageId}", 200, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stages.WithLabelValues("route")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("set_field")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 6)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StageExecuted("route")
		m.ServiceFailed("llm")
		m.ToolActivation("activated")
		m.ActionDispatched("reveal_tool")
		m.WorkflowRun("halted")
		m.HTTPRequest("POST", "/v1/converse", 500, time.Second)
	})
}
