package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "advisim_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "advisim_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	AgentRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "advisim_agent_runs_total",
		Help: "Total orchestration turns by agent and outcome",
	}, []string{"agent", "status"})

	AgentRunIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "advisim_agent_run_iterations",
		Help:    "Tool-resolution iterations per orchestration turn",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
	}, []string{"agent"})

	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "advisim_tool_calls_total",
		Help: "Total tool invocations by tool and outcome",
	}, []string{"tool", "status"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "advisim_sessions_active",
		Help: "Number of active simulation sessions",
	})

	SpeechRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "advisim_speech_requests_total",
		Help: "Total speech synthesis requests by outcome",
	}, []string{"status"})

	SpeechStreamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "advisim_speech_stream_bytes_total",
		Help: "Total audio bytes streamed to clients",
	})

	SynthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "advisim_synthesis_duration_seconds",
		Help:    "TTS synthesis duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5},
	})
)
