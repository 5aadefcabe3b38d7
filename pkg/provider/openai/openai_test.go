package openai

import (
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should require an API key and model", func(t *testing.T) {
		_, err := New(Config{Model: "gpt-4o"})
		assert.Error(t, err)

		_, err = New(Config{APIKey: "sk-test"})
		assert.Error(t, err)
	})

	t.Run("should report its name", func(t *testing.T) {
		p, err := New(Config{APIKey: "sk-test", Model: "gpt-4o"})
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})
}

func TestMapFinishReason(t *testing.T) {
	assert.Equal(t, message.StopToolUse, mapFinishReason("tool_calls"))
	assert.Equal(t, message.StopMaxTokens, mapFinishReason("length"))
	assert.Equal(t, message.StopEndTurn, mapFinishReason("stop"))
	assert.Equal(t, message.StopEndTurn, mapFinishReason("content_filter"))
}

func TestConvertMessages(t *testing.T) {
	t.Run("should prepend the system prompt", func(t *testing.T) {
		out, err := convertMessages("be brief", []message.Message{
			message.NewUser(message.TextBlock("hello")),
		})
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("should map tool results to tool-role messages", func(t *testing.T) {
		out, err := convertMessages("", []message.Message{
			message.NewUser(message.ToolResultBlock(message.SuccessResult("call-1", "42"))),
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.NotNil(t, out[0].OfTool)
		assert.Equal(t, "call-1", out[0].OfTool.ToolCallID)
	})

	t.Run("should carry assistant tool calls with serialized arguments", func(t *testing.T) {
		out, err := convertMessages("", []message.Message{
			message.NewAssistant(
				message.TextBlock("using a tool"),
				message.ToolUseBlock(message.ToolUse{
					ID:    "call-1",
					Name:  "lookup",
					Input: map[string]any{"key": "answer"},
				}),
			),
		})
		require.NoError(t, err)
		require.Len(t, out, 1)

		assistant := out[0].OfAssistant
		require.NotNil(t, assistant)
		require.Len(t, assistant.ToolCalls, 1)
		assert.Equal(t, "call-1", assistant.ToolCalls[0].ID)
		assert.Equal(t, "lookup", assistant.ToolCalls[0].Function.Name)
		assert.JSONEq(t, `{"key":"answer"}`, assistant.ToolCalls[0].Function.Arguments)
	})
}

func TestStreamTranslate(t *testing.T) {
	t.Run("should synthesize block boundaries around flat deltas", func(t *testing.T) {
		s := &stream{start: time.Now()}

		first := s.translate(openai.ChatCompletionChunk{
			Choices: []openai.ChatCompletionChunkChoice{{
				Delta: openai.ChatCompletionChunkChoiceDelta{Content: "Hel"},
			}},
		})
		require.Len(t, first, 3)
		assert.NotNil(t, first[0].MessageStart)
		assert.NotNil(t, first[1].ContentBlockStart)
		assert.Equal(t, "Hel", first[2].ContentBlockDelta.Delta.Text)

		second := s.translate(openai.ChatCompletionChunk{
			Choices: []openai.ChatCompletionChunkChoice{{
				Delta: openai.ChatCompletionChunkChoiceDelta{Content: "lo"},
			}},
		})
		require.Len(t, second, 1)
		assert.Equal(t, "lo", second[0].ContentBlockDelta.Delta.Text)

		final := s.translate(openai.ChatCompletionChunk{
			Choices: []openai.ChatCompletionChunkChoice{{FinishReason: "stop"}},
		})
		require.Len(t, final, 2)
		assert.NotNil(t, final[0].ContentBlockStop)
		assert.Equal(t, message.StopEndTurn, final[1].MessageStop.StopReason)
	})

	t.Run("should open a tool block when a call id arrives", func(t *testing.T) {
		s := &stream{start: time.Now()}

		events := s.translate(openai.ChatCompletionChunk{
			Choices: []openai.ChatCompletionChunkChoice{{
				Delta: openai.ChatCompletionChunkChoiceDelta{
					ToolCalls: []openai.ChatCompletionChunkChoiceDeltaToolCall{{
						Index: 0,
						ID:    "call-1",
						Function: openai.ChatCompletionChunkChoiceDeltaToolCallFunction{
							Name:      "lookup",
							Arguments: `{"key":`,
						},
					}},
				},
			}},
		})

		require.Len(t, events, 3)
		assert.NotNil(t, events[0].MessageStart)
		start := events[1].ContentBlockStart
		require.NotNil(t, start)
		require.NotNil(t, start.ToolUse)
		assert.Equal(t, "call-1", start.ToolUse.ID)
		assert.Equal(t, "lookup", start.ToolUse.Name)
		assert.Equal(t, `{"key":`, events[2].ContentBlockDelta.Delta.ToolUseInput)

		// Continuation chunks carry only arguments.
		more := s.translate(openai.ChatCompletionChunk{
			Choices: []openai.ChatCompletionChunkChoice{{
				Delta: openai.ChatCompletionChunkChoiceDelta{
					ToolCalls: []openai.ChatCompletionChunkChoiceDeltaToolCall{{
						Index:    0,
						Function: openai.ChatCompletionChunkChoiceDeltaToolCallFunction{Arguments: `"answer"}`},
					}},
				},
			}},
		})
		require.Len(t, more, 1)
		assert.Equal(t, `"answer"}`, more[0].ContentBlockDelta.Delta.ToolUseInput)
	})

	t.Run("should report usage as metadata", func(t *testing.T) {
		s := &stream{start: time.Now(), started: true}

		events := s.translate(openai.ChatCompletionChunk{
			Usage: openai.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
		require.Len(t, events, 1)
		meta := events[0].Metadata
		require.NotNil(t, meta)
		assert.Equal(t, 10, meta.Usage.InputTokens)
		assert.Equal(t, 5, meta.Usage.OutputTokens)
		assert.Equal(t, 15, meta.Usage.TotalTokens)
	})
}

func TestTranslateError(t *testing.T) {
	t.Run("should pass nil and unrelated errors through", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
		assert.Same(t, assert.AnError, translateError(assert.AnError))
	})
}
