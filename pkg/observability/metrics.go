// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring chatrelay.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ToolBuckets covers tool calls from 10ms to 60s.
var ToolBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// RequestsTotal counts HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// ActiveStreams tracks chat responses currently being streamed.
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_streams_active",
			Help: "Active streaming responses",
		},
	)

	// FramesTotal counts emitted output frames by protocol and kind.
	FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_frames_total",
			Help: "Output frames emitted",
		},
		[]string{"protocol", "kind"},
	)

	// ProviderRequestsTotal counts streaming completion requests sent upstream.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"model", "status"},
	)

	// ProviderLatency records the time until the upstream stream is open.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// ProviderTokensTotal counts tokens reported by the upstream by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// ToolDuration records tool execution time in seconds.
	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: ToolBuckets,
		},
		[]string{"tool_name"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ActiveStreams,
		FramesTotal,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ToolExecutionsTotal,
		ToolDuration,
	)
}
