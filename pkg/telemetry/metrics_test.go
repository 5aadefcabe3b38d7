package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoopMetrics(t *testing.T) {
	t.Run("should accumulate counters and usage", func(t *testing.T) {
		m := NewEventLoopMetrics()

		m.RecordCycle()
		m.RecordInvocation(Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, 20*time.Millisecond)
		m.RecordInvocation(Usage{InputTokens: 4, OutputTokens: 2, TotalTokens: 6}, 10*time.Millisecond)
		m.RecordOverflow()
		m.RecordToolCall("calculator", time.Millisecond, true)
		m.RecordToolCall("calculator", time.Millisecond, false)

		snap := m.Snapshot()
		assert.Equal(t, int64(1), snap.CycleCount)
		assert.Equal(t, int64(2), snap.InvocationCount)
		assert.Equal(t, int64(1), snap.OverflowCount)
		assert.Equal(t, int64(2), snap.ToolCallCount)
		assert.Equal(t, int64(1), snap.ToolErrorCount)
		assert.Equal(t, 14, snap.AccumulatedUsage.InputTokens)
		assert.Equal(t, 7, snap.AccumulatedUsage.OutputTokens)
		assert.Equal(t, 21, snap.AccumulatedUsage.TotalTokens)
		assert.Equal(t, 30*time.Millisecond, snap.InvocationLatency)
	})

	t.Run("should leave earlier snapshots untouched", func(t *testing.T) {
		m := NewEventLoopMetrics()
		m.RecordCycle()

		before := m.Snapshot()
		m.RecordCycle()

		assert.Equal(t, int64(1), before.CycleCount)
		assert.Equal(t, int64(2), m.Snapshot().CycleCount)
	})
}

func TestCollector(t *testing.T) {
	t.Run("should mirror recordings into prometheus counters", func(t *testing.T) {
		c := NewCollector()
		m := NewEventLoopMetrics().WithCollector(c)

		m.RecordCycle()
		m.RecordInvocation(Usage{InputTokens: 100, OutputTokens: 50}, 5*time.Millisecond)
		m.RecordToolCall("search", 2*time.Millisecond, true)

		families, err := c.Registry().Gather()
		require.NoError(t, err)

		names := make(map[string]bool, len(families))
		for _, family := range families {
			names[family.GetName()] = true
		}
		assert.True(t, names["event_loop_cycles_total"])
		assert.True(t, names["model_invocations_total"])
		assert.True(t, names["tool_calls_total"])
	})

	t.Run("should serve a scrape handler", func(t *testing.T) {
		c := NewCollector()
		assert.NotNil(t, c.Handler())
	})
}

func TestUsage(t *testing.T) {
	t.Run("should add componentwise", func(t *testing.T) {
		u := Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}
		u.Add(Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30})
		assert.Equal(t, Usage{InputTokens: 11, OutputTokens: 22, TotalTokens: 33}, u)
	})
}
