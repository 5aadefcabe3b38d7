package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) *Func {
	return NewFunc(name, "echoes its input", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []any{"text"},
	}, func(ctx context.Context, input map[string]any) (any, error) {
		return input["text"], nil
	})
}

func TestRegister(t *testing.T) {
	t.Run("should reject duplicate names", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoTool("echo")))

		err := r.Register(echoTool("echo"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("should reject empty names", func(t *testing.T) {
		r := NewRegistry()
		err := r.Register(NewFunc("", "nameless", nil, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("should reject malformed schemas at registration", func(t *testing.T) {
		r := NewRegistry()
		bad := NewFunc("bad", "broken schema", map[string]any{
			"type": 42,
		}, nil)
		assert.Error(t, r.Register(bad))
	})
}

func TestValidate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool("echo")))
	require.NoError(t, r.Register(NewFunc("loose", "no schema", nil, nil)))

	t.Run("should accept conforming input", func(t *testing.T) {
		assert.NoError(t, r.Validate("echo", map[string]any{"text": "hello"}))
	})

	t.Run("should reject input missing required fields", func(t *testing.T) {
		err := r.Validate("echo", map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "echo")
	})

	t.Run("should accept anything for tools without a schema", func(t *testing.T) {
		assert.NoError(t, r.Validate("loose", map[string]any{"anything": true}))
	})
}

func TestSpecs(t *testing.T) {
	t.Run("should list specs sorted by name", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoTool("zulu")))
		require.NoError(t, r.Register(echoTool("alpha")))

		specs := r.Specs()
		require.Len(t, specs, 2)
		assert.Equal(t, "alpha", specs[0].Name)
		assert.Equal(t, "zulu", specs[1].Name)
	})

	t.Run("should default the schema for schemaless tools", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(NewFunc("loose", "no schema", nil, nil)))

		specs := r.Specs()
		require.Len(t, specs, 1)
		assert.Equal(t, "object", specs[0].InputSchema["type"])
	})

	t.Run("should reflect registry changes on the next call", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(echoTool("echo")))
		assert.Len(t, r.Specs(), 1)

		r.Unregister("echo")
		assert.Empty(t, r.Specs())
	})
}
