package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should require an API key and model", func(t *testing.T) {
		_, err := New(Config{Model: "claude-sonnet-4-20250514"})
		assert.Error(t, err)

		_, err = New(Config{APIKey: "sk-ant-test"})
		assert.Error(t, err)
	})

	t.Run("should default the token ceiling", func(t *testing.T) {
		p, err := New(Config{APIKey: "sk-ant-test", Model: "claude-sonnet-4-20250514"})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", p.Name())
		assert.Equal(t, int64(DefaultMaxTokens), p.maxTokens)
	})
}

func TestMapStopReason(t *testing.T) {
	assert.Equal(t, message.StopToolUse, mapStopReason(anthropic.StopReasonToolUse))
	assert.Equal(t, message.StopMaxTokens, mapStopReason(anthropic.StopReasonMaxTokens))
	assert.Equal(t, message.StopStopSequence, mapStopReason(anthropic.StopReasonStopSequence))
	assert.Equal(t, message.StopEndTurn, mapStopReason(anthropic.StopReasonEndTurn))
	assert.Equal(t, message.StopEndTurn, mapStopReason(""))
}

func TestResultText(t *testing.T) {
	t.Run("should join text and JSON content", func(t *testing.T) {
		result := message.ToolResult{
			ToolUseID: "id",
			Status:    message.ToolResultSuccess,
			Content: []message.ToolResultContent{
				{Text: "count: "},
				{JSON: map[string]any{"value": 4}},
			},
		}
		assert.Equal(t, `count: {"value":4}`, resultText(&result))
	})
}

func TestConvertMessages(t *testing.T) {
	t.Run("should map roles and skip empty messages", func(t *testing.T) {
		params := convertMessages([]message.Message{
			message.NewUser(message.TextBlock("hello")),
			message.NewAssistant(message.TextBlock("hi there")),
			{Role: message.RoleUser}, // no content
		})

		require.Len(t, params, 2)
		assert.Equal(t, anthropic.MessageParamRoleUser, params[0].Role)
		assert.Equal(t, anthropic.MessageParamRoleAssistant, params[1].Role)
	})

	t.Run("should not replay reasoning blocks", func(t *testing.T) {
		params := convertMessages([]message.Message{
			message.NewAssistant(
				message.ReasoningBlock("thinking", "sig"),
				message.TextBlock("answer"),
			),
		})

		require.Len(t, params, 1)
		assert.Len(t, params[0].Content, 1)
	})
}

func TestConvertTools(t *testing.T) {
	t.Run("should carry the schema properties and required list", func(t *testing.T) {
		out := convertTools([]provider.ToolSpec{{
			Name:        "calculator",
			Description: "evaluates expressions",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"expression": map[string]any{"type": "string"},
				},
				"required": []any{"expression"},
			},
		}})

		require.Len(t, out, 1)
		tool := out[0].OfTool
		require.NotNil(t, tool)
		assert.Equal(t, "calculator", tool.Name)
		assert.Equal(t, []string{"expression"}, tool.InputSchema.Required)
	})
}

func TestTranslateError(t *testing.T) {
	t.Run("should pass nil and unrelated errors through", func(t *testing.T) {
		assert.NoError(t, translateError(nil))

		err := assert.AnError
		assert.Same(t, err, translateError(err))
	})
}
