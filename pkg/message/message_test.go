package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSON(t *testing.T) {
	t.Run("should round trip mixed content blocks", func(t *testing.T) {
		msg := NewAssistant(
			TextBlock("thinking done"),
			ToolUseBlock(ToolUse{
				ID:    "tooluse_calc_1",
				Name:  "calculator",
				Input: map[string]any{"expression": "2+2"},
			}),
			ReasoningBlock("let me compute", "sig-abc"),
		)

		raw, err := json.Marshal(msg)
		require.NoError(t, err)

		var decoded Message
		require.NoError(t, json.Unmarshal(raw, &decoded))

		assert.Equal(t, RoleAssistant, decoded.Role)
		require.Len(t, decoded.Content, 3)
		assert.Equal(t, "thinking done", *decoded.Content[0].Text)
		assert.Equal(t, "calculator", decoded.Content[1].ToolUse.Name)
		assert.Equal(t, "2+2", decoded.Content[1].ToolUse.Input["expression"])
		assert.Equal(t, "sig-abc", decoded.Content[2].Reasoning.Signature)
	})

	t.Run("should use one JSON key per block variant", func(t *testing.T) {
		raw, err := json.Marshal(ToolResultBlock(SuccessResult("id-1", "ok")))
		require.NoError(t, err)

		var shape map[string]any
		require.NoError(t, json.Unmarshal(raw, &shape))
		assert.Len(t, shape, 1)
		assert.Contains(t, shape, "toolResult")
	})
}

func TestMessageInspection(t *testing.T) {
	t.Run("should report tool uses in content order", func(t *testing.T) {
		msg := NewAssistant(
			TextBlock("calling two tools"),
			ToolUseBlock(ToolUse{ID: "a", Name: "first"}),
			ToolUseBlock(ToolUse{ID: "b", Name: "second"}),
		)

		uses := msg.ToolUses()
		require.Len(t, uses, 2)
		assert.Equal(t, "first", uses[0].Name)
		assert.Equal(t, "second", uses[1].Name)
		assert.True(t, msg.HasToolUse())
		assert.False(t, msg.HasToolResult())
	})

	t.Run("should detect tool results", func(t *testing.T) {
		msg := NewUser(ToolResultBlock(ErrorResult("id", "boom")))
		assert.True(t, msg.HasToolResult())
		assert.False(t, msg.HasToolUse())
	})
}

func TestClone(t *testing.T) {
	t.Run("should isolate nested tool input from the original", func(t *testing.T) {
		original := NewAssistant(ToolUseBlock(ToolUse{
			ID:   "id",
			Name: "tool",
			Input: map[string]any{
				"nested": map[string]any{"key": "value"},
				"list":   []any{1.0, 2.0},
			},
		}))

		clone := original.Clone()
		clone.Content[0].ToolUse.Input["nested"].(map[string]any)["key"] = "mutated"
		clone.Content[0].ToolUse.Input["list"].([]any)[0] = 99.0

		input := original.Content[0].ToolUse.Input
		assert.Equal(t, "value", input["nested"].(map[string]any)["key"])
		assert.Equal(t, 1.0, input["list"].([]any)[0])
	})

	t.Run("should isolate tool result content", func(t *testing.T) {
		original := NewUser(ToolResultBlock(ToolResult{
			ToolUseID: "id",
			Status:    ToolResultSuccess,
			Content:   []ToolResultContent{{JSON: map[string]any{"count": 1.0}}},
		}))

		cloned := CloneAll([]Message{original})
		cloned[0].Content[0].ToolResult.Content[0].JSON.(map[string]any)["count"] = 2.0

		assert.Equal(t, 1.0, original.Content[0].ToolResult.Content[0].JSON.(map[string]any)["count"])
	})
}
