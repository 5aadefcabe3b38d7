package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIdentifiers(t *testing.T) {
	t.Run("should carry identifiers through the context", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithTraceID(ctx, "trace-1")
		ctx = WithCycleID(ctx, "cycle-1")
		ctx = WithSessionID(ctx, "session-1")

		assert.Equal(t, "trace-1", GetTraceID(ctx))
		assert.Equal(t, "cycle-1", GetCycleID(ctx))
		assert.Equal(t, "session-1", GetSessionID(ctx))
	})

	t.Run("should return empty strings from a bare context", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetCycleID(ctx))
		assert.Empty(t, GetSessionID(ctx))
	})

	t.Run("should mint a fresh trace ID per request context", func(t *testing.T) {
		first := NewRequestContext(context.Background())
		second := NewRequestContext(context.Background())

		require.NotEmpty(t, GetTraceID(first))
		assert.NotEqual(t, GetTraceID(first), GetTraceID(second))
	})
}

func TestLoggerFromContext(t *testing.T) {
	t.Run("should enrich log lines with correlation identifiers", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)

		ctx := WithCycleID(WithTraceID(context.Background(), "trace-9"), "cycle-9")
		logger := LoggerFromContext(ctx, base)
		logger.Info().Msg("correlated")

		line := buf.String()
		assert.Contains(t, line, `"trace_id":"trace-9"`)
		assert.Contains(t, line, `"cycle_id":"cycle-9"`)
	})

	t.Run("should leave the base logger untouched without identifiers", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)

		logger := LoggerFromContext(context.Background(), base)
		logger.Info().Msg("plain")
		assert.NotContains(t, buf.String(), "trace_id")
	})
}
