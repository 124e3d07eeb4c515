package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_steps_completed_total",
			Help: "Total number of pipeline steps completed per task type",
		},
		[]string{"task_type"},
	)

	StepsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_steps_failed_total",
			Help: "Total number of pipeline steps failed per task type",
		},
		[]string{"task_type", "error_code"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_step_duration_seconds",
			Help:    "Duration of pipeline steps in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"task_type"},
	)

	TurnsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assistant_turns_active",
			Help: "Number of conversation turns in flight per entry point",
		},
		[]string{"source"},
	)

	EnvelopesBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_envelopes_total",
			Help: "Response envelopes returned per envelope type",
		},
		[]string{"type"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tool_calls_total",
			Help: "Tool calls executed per tool and outcome",
		},
		[]string{"tool", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_http_requests_total",
			Help: "HTTP requests served per route and status code",
		},
		[]string{"route", "status"},
	)
)
