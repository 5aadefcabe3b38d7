package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the prometheus instruments mirrored from
// EventLoopMetrics.
type Collector struct {
	registry *prometheus.Registry

	CyclesTotal        prometheus.Counter
	InvocationsTotal   prometheus.Counter
	InvocationDuration prometheus.Histogram
	OverflowsTotal     prometheus.Counter
	InputTokensTotal   prometheus.Counter
	OutputTokensTotal  prometheus.Counter

	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
}

// NewCollector creates and registers all instruments on a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		CyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "event_loop_cycles_total",
				Help: "Total number of event loop cycles",
			},
		),
		InvocationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "model_invocations_total",
				Help: "Total number of model invocations",
			},
		),
		InvocationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "model_invocation_duration_seconds",
				Help:    "Duration of model invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		OverflowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "context_overflows_total",
				Help: "Total number of context overflow recoveries",
			},
		),
		InputTokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "input_tokens_total",
				Help: "Total input tokens consumed",
			},
		),
		OutputTokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "output_tokens_total",
				Help: "Total output tokens produced",
			},
		),

		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool_name", "status"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_call_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
	}

	registry.MustRegister(
		c.CyclesTotal,
		c.InvocationsTotal,
		c.InvocationDuration,
		c.OverflowsTotal,
		c.InputTokensTotal,
		c.OutputTokensTotal,
		c.ToolCallsTotal,
		c.ToolCallDuration,
	)

	return c
}

// Handler returns an HTTP handler for the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
