// Package metrics exposes Prometheus counters for the pipeline, the
// orchestrator and the action executor. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "journey_lens"

type Metrics struct {
	stages      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	activations *prometheus.CounterVec
	actions     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	requests    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_total",
			Help:      "Routing pipeline stages executed, by stage.",
		}, []string{"stage"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_failures_total",
			Help:      "External service calls converted into error text, by service.",
		}, []string{"service"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_activations_total",
			Help:      "Tool orchestrator results, by outcome.",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dispatched_total",
			Help:      "UI actions dispatched to a sink, by action type.",
		}, []string{"type"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Workflow executions, by final status.",
		}, []string{"status"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method, route pattern and status code.",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "code"}),
	}
	if reg != nil {
		reg.MustRegister(m.stages, m.failures, m.activations, m.actions, m.runs, m.requests)
	}
	return m
}

func (m *Metrics) StageExecuted(stage string) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Inc()
}

func (m *Metrics) ServiceFailed(service string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(service).Inc()
}

func (m *Metrics) ToolActivation(outcome string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ActionDispatched(actionType string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(actionType).Inc()
}

func (m *Metrics) WorkflowRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// HTTPRequest observes one served request. route is the router pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) HTTPRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}
