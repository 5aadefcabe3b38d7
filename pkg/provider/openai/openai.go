// Package openai adapts the OpenAI chat completions API to the provider
// interface consumed by the event loop.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/rotorlab/rotor/pkg/telemetry"
)

// Config holds the adapter settings. APIKey and Model are required.
type Config struct {
	APIKey string
	Model  string

	// MaxTokens caps the response when positive.
	MaxTokens int

	// Temperature is forwarded when positive.
	Temperature float64

	// BaseURL overrides the API endpoint, for proxies and tests.
	BaseURL string
}

// Provider streams OpenAI model responses.
type Provider struct {
	client    openai.Client
	model     openai.ChatModel
	maxTokens int
	temp      float64
}

// New builds an OpenAI provider from the configuration.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:    openai.NewClient(opts...),
		model:     openai.ChatModel(cfg.Model),
		maxTokens: cfg.MaxTokens,
		temp:      cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Stream starts one streamed invocation.
func (p *Provider) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	messages, err := convertMessages(req.SystemPrompt, req.Messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: messages,
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.maxTokens))
	}
	if p.temp > 0 {
		params.Temperature = openai.Float(p.temp)
	}
	if len(req.ToolSpecs) > 0 {
		params.Tools = convertTools(req.ToolSpecs)
	}

	return &stream{
		inner: p.client.Chat.Completions.NewStreaming(ctx, params),
		start: time.Now(),
	}, nil
}

// convertMessages maps the conversation to chat completion params. Tool
// results become tool-role messages, which the API requires to follow the
// assistant message carrying the matching calls.
func convertMessages(systemPrompt string, msgs []message.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range msgs {
		if msg.Role == message.RoleAssistant {
			converted, err := convertAssistant(msg)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
			continue
		}

		var text strings.Builder
		for _, block := range msg.Content {
			switch {
			case block.Text != nil:
				text.WriteString(*block.Text)
			case block.ToolResult != nil:
				out = append(out, openai.ToolMessage(
					resultText(block.ToolResult), block.ToolResult.ToolUseID,
				))
			}
		}
		if text.Len() > 0 {
			out = append(out, openai.UserMessage(text.String()))
		}
	}
	return out, nil
}

func convertAssistant(msg message.Message) (openai.ChatCompletionMessageParamUnion, error) {
	var text strings.Builder
	var calls []openai.ChatCompletionMessageToolCallParam
	for _, block := range msg.Content {
		switch {
		case block.Text != nil:
			text.WriteString(*block.Text)
		case block.ToolUse != nil:
			args, err := json.Marshal(block.ToolUse.Input)
			if err != nil {
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("encoding tool input for %s: %w", block.ToolUse.Name, err)
			}
			calls = append(calls, openai.ChatCompletionMessageToolCallParam{
				ID: block.ToolUse.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      block.ToolUse.Name,
					Arguments: string(args),
				},
			})
		}
	}

	if len(calls) == 0 {
		return openai.AssistantMessage(text.String()), nil
	}

	assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if text.Len() > 0 {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text.String()),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
}

// resultText flattens tool result content to a single string.
func resultText(result *message.ToolResult) string {
	var b strings.Builder
	for _, content := range result.Content {
		if content.Text != "" {
			b.WriteString(content.Text)
			continue
		}
		if content.JSON != nil {
			if raw, err := json.Marshal(content.JSON); err == nil {
				b.Write(raw)
			}
		}
	}
	return b.String()
}

func convertTools(specs []provider.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		tool := openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:       spec.Name,
				Parameters: openai.FunctionParameters(spec.InputSchema),
			},
		}
		if spec.Description != "" {
			tool.Function.Description = openai.String(spec.Description)
		}
		out = append(out, tool)
	}
	return out
}

// stream translates completion chunks into delta events. Chat completions
// stream flat deltas without block boundaries, so block starts and stops
// are synthesized: text occupies index 0 and each tool call occupies its
// chunk index offset past the text block.
type stream struct {
	inner   *ssestream.Stream[openai.ChatCompletionChunk]
	start   time.Time
	current provider.StreamEvent
	pending []provider.StreamEvent

	started   bool
	textOpen  bool
	toolOpen  bool
	toolIndex int
}

func (s *stream) Next() bool {
	if len(s.pending) > 0 {
		s.current = s.pending[0]
		s.pending = s.pending[1:]
		return true
	}
	for s.inner.Next() {
		translated := s.translate(s.inner.Current())
		if len(translated) == 0 {
			continue
		}
		s.current = translated[0]
		s.pending = translated[1:]
		return true
	}
	return false
}

func (s *stream) Current() provider.StreamEvent {
	return s.current
}

func (s *stream) Err() error {
	return translateError(s.inner.Err())
}

func (s *stream) Close() error {
	return s.inner.Close()
}

func (s *stream) translate(chunk openai.ChatCompletionChunk) []provider.StreamEvent {
	var out []provider.StreamEvent

	if !s.started {
		s.started = true
		out = append(out, provider.StreamEvent{
			MessageStart: &provider.MessageStartEvent{Role: message.RoleAssistant},
		})
	}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			if !s.textOpen {
				s.textOpen = true
				out = append(out, provider.StreamEvent{
					ContentBlockStart: &provider.ContentBlockStartEvent{Index: 0},
				})
			}
			out = append(out, provider.StreamEvent{
				ContentBlockDelta: &provider.ContentBlockDeltaEvent{
					Index: 0,
					Delta: provider.Delta{Text: choice.Delta.Content},
				},
			})
		}

		for _, call := range choice.Delta.ToolCalls {
			index := int(call.Index) + 1
			if call.ID != "" {
				out = append(out, s.closeOpenBlocks()...)
				s.toolOpen = true
				s.toolIndex = index
				out = append(out, provider.StreamEvent{
					ContentBlockStart: &provider.ContentBlockStartEvent{
						Index:   index,
						ToolUse: &provider.ToolUseStart{ID: call.ID, Name: call.Function.Name},
					},
				})
			}
			if call.Function.Arguments != "" {
				out = append(out, provider.StreamEvent{
					ContentBlockDelta: &provider.ContentBlockDeltaEvent{
						Index: index,
						Delta: provider.Delta{ToolUseInput: call.Function.Arguments},
					},
				})
			}
		}

		if choice.FinishReason != "" {
			out = append(out, s.closeOpenBlocks()...)
			out = append(out, provider.StreamEvent{
				MessageStop: &provider.MessageStopEvent{
					StopReason: mapFinishReason(choice.FinishReason),
				},
			})
		}
	}

	if chunk.Usage.TotalTokens > 0 {
		out = append(out, provider.StreamEvent{
			Metadata: &provider.MetadataEvent{
				Usage: telemetry.Usage{
					InputTokens:  int(chunk.Usage.PromptTokens),
					OutputTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:  int(chunk.Usage.TotalTokens),
				},
				LatencyMs: time.Since(s.start).Milliseconds(),
			},
		})
	}

	return out
}

func (s *stream) closeOpenBlocks() []provider.StreamEvent {
	var out []provider.StreamEvent
	if s.textOpen {
		s.textOpen = false
		out = append(out, provider.StreamEvent{
			ContentBlockStop: &provider.ContentBlockStopEvent{Index: 0},
		})
	}
	if s.toolOpen {
		s.toolOpen = false
		out = append(out, provider.StreamEvent{
			ContentBlockStop: &provider.ContentBlockStopEvent{Index: s.toolIndex},
		})
	}
	return out
}

func mapFinishReason(reason string) message.StopReason {
	switch reason {
	case "tool_calls":
		return message.StopToolUse
	case "length":
		return message.StopMaxTokens
	default:
		return message.StopEndTurn
	}
}

// translateError surfaces context overflows as the typed error the loop
// recovers from.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) &&
		(apierr.Code == "context_length_exceeded" ||
			strings.Contains(strings.ToLower(apierr.Error()), "context length")) {
		return &provider.ContextOverflowError{Provider: "openai", Cause: err}
	}
	return err
}
