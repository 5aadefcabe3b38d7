// Package telemetry accumulates event-loop metrics. The accumulator is
// written only by the running cycle and may be read concurrently through
// Snapshot; an optional prometheus Collector mirrors the same counters for
// scraping.
package telemetry

import (
	"sync"
	"time"
)

// Usage is the token accounting reported by a provider for one invocation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// EventLoopMetrics accumulates counters and timers across cycles. Counters
// are monotonic; readers get point-in-time copies via Snapshot.
type EventLoopMetrics struct {
	mu sync.Mutex

	cycleCount        int64
	invocationCount   int64
	overflowCount     int64
	toolCallCount     int64
	toolErrorCount    int64
	accumulatedUsage  Usage
	invocationLatency time.Duration

	collector *Collector
}

// NewEventLoopMetrics creates an empty accumulator.
func NewEventLoopMetrics() *EventLoopMetrics {
	return &EventLoopMetrics{}
}

// WithCollector mirrors every recording into the given prometheus
// collector. Returns m for chaining.
func (m *EventLoopMetrics) WithCollector(c *Collector) *EventLoopMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collector = c
	return m
}

// RecordCycle counts one event-loop cycle.
func (m *EventLoopMetrics) RecordCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycleCount++
	if m.collector != nil {
		m.collector.CyclesTotal.Inc()
	}
}

// RecordInvocation counts one provider invocation with its usage and
// latency.
func (m *EventLoopMetrics) RecordInvocation(usage Usage, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invocationCount++
	m.accumulatedUsage.Add(usage)
	m.invocationLatency += latency
	if m.collector != nil {
		m.collector.InvocationsTotal.Inc()
		m.collector.InvocationDuration.Observe(latency.Seconds())
		m.collector.InputTokensTotal.Add(float64(usage.InputTokens))
		m.collector.OutputTokensTotal.Add(float64(usage.OutputTokens))
	}
}

// RecordOverflow counts one capacity-overflow recovery attempt.
func (m *EventLoopMetrics) RecordOverflow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overflowCount++
	if m.collector != nil {
		m.collector.OverflowsTotal.Inc()
	}
}

// RecordToolCall counts one tool invocation.
func (m *EventLoopMetrics) RecordToolCall(name string, latency time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCallCount++
	if !success {
		m.toolErrorCount++
	}
	if m.collector != nil {
		status := "success"
		if !success {
			status = "error"
		}
		m.collector.ToolCallsTotal.WithLabelValues(name, status).Inc()
		m.collector.ToolCallDuration.WithLabelValues(name).Observe(latency.Seconds())
	}
}

// Snapshot is a point-in-time copy of the accumulated metrics.
type Snapshot struct {
	CycleCount        int64         `json:"cycle_count"`
	InvocationCount   int64         `json:"invocation_count"`
	OverflowCount     int64         `json:"overflow_count"`
	ToolCallCount     int64         `json:"tool_call_count"`
	ToolErrorCount    int64         `json:"tool_error_count"`
	AccumulatedUsage  Usage         `json:"accumulated_usage"`
	InvocationLatency time.Duration `json:"invocation_latency"`
}

// Snapshot returns a copy of the current counters. Safe to call while a
// cycle is in flight.
func (m *EventLoopMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		CycleCount:        m.cycleCount,
		InvocationCount:   m.invocationCount,
		OverflowCount:     m.overflowCount,
		ToolCallCount:     m.toolCallCount,
		ToolErrorCount:    m.toolErrorCount,
		AccumulatedUsage:  m.accumulatedUsage,
		InvocationLatency: m.invocationLatency,
	}
}
