// Package metrics exposes the process-wide Prometheus metrics: ReAct
// episode counts and step counts, tool call latencies, LLM request
// latencies and token usage, and background scheduler tick/skip
// counters.
//
// Grounded on the teacher's internal/observability/metrics.go: a single
// struct of promauto-registered CounterVec/HistogramVec/GaugeVec
// fields built once at startup, with one record-method per concern.
// The teacher's channel-message and database-query metrics have no
// SPEC_FULL.md component to report them and were dropped; the
// LLM/tool/error metrics were kept and relabeled for this domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide metrics registry, constructed once at
// startup and passed by reference into the components that report to
// it.
type Metrics struct {
	EpisodesStarted *prometheus.CounterVec
	EpisodeSteps    *prometheus.HistogramVec
	EpisodeDuration *prometheus.HistogramVec

	LLMRequestDuration *prometheus.HistogramVec
	LLMRequestCounter  *prometheus.CounterVec
	LLMTokensUsed      *prometheus.CounterVec

	ToolExecutionCounter  *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	SchedulerTicksTotal   prometheus.Counter
	SchedulerSkippedTotal prometheus.Counter

	ErrorCounter *prometheus.CounterVec
}

// New creates and registers every metric against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests) or
// prometheus.DefaultRegisterer for the process-wide one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EpisodesStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_episodes_started_total",
				Help: "Total number of ReAct episodes started, by outcome (final_answer|error).",
			},
			[]string{"outcome"},
		),
		EpisodeSteps: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrt_episode_steps",
				Help:    "Number of reasoning/acting steps taken per episode.",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"outcome"},
		),
		EpisodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrt_episode_duration_seconds",
				Help:    "Wall-clock duration of a ReAct episode.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrt_llm_request_duration_seconds",
				Help:    "Duration of llm.Client.Complete calls.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_llm_requests_total",
				Help: "Total LLM requests by provider, model, and status.",
			},
			[]string{"provider", "model", "status"},
		),
		LLMTokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_llm_tokens_total",
				Help: "Total tokens consumed by provider, model, and kind (prompt|completion).",
			},
			[]string{"provider", "model", "kind"},
		),
		ToolExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_tool_executions_total",
				Help: "Total tool executions by tool name and status.",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentrt_tool_execution_duration_seconds",
				Help:    "Duration of tool executions.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),
		SchedulerTicksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentrt_scheduler_ticks_total",
				Help: "Total scheduler ticks.",
			},
		),
		SchedulerSkippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentrt_scheduler_skipped_total",
				Help: "Total due agents skipped because their run-lock was already held.",
			},
		),
		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrt_errors_total",
				Help: "Total errors by component and error kind.",
			},
			[]string{"component", "error_kind"},
		),
	}
}

func (m *Metrics) RecordEpisode(outcome string, steps int, durationSeconds float64) {
	m.EpisodesStarted.WithLabelValues(outcome).Inc()
	m.EpisodeSteps.WithLabelValues(outcome).Observe(float64(steps))
	m.EpisodeDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

func (m *Metrics) RecordSchedulerTick(skipped int) {
	m.SchedulerTicksTotal.Inc()
	if skipped > 0 {
		m.SchedulerSkippedTotal.Add(float64(skipped))
	}
}

func (m *Metrics) RecordError(component, errorKind string) {
	m.ErrorCounter.WithLabelValues(component, errorKind).Inc()
}
