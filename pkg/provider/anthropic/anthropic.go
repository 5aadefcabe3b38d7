// Package anthropic adapts the Anthropic Messages API to the provider
// interface consumed by the event loop.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/rotorlab/rotor/pkg/telemetry"
)

// DefaultMaxTokens is the response token ceiling used when the
// configuration leaves it unset.
const DefaultMaxTokens = 4096

// Config holds the adapter settings. APIKey and Model are required.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int

	// Temperature is forwarded when positive.
	Temperature float64

	// BaseURL overrides the API endpoint, for proxies and tests.
	BaseURL string
}

// Provider streams Anthropic model responses.
type Provider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	temp      float64
}

// New builds an Anthropic provider from the configuration.
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

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Provider{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(maxTokens),
		temp:      cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// Stream starts one streamed invocation.
func (p *Provider) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages:  convertMessages(req.Messages),
	}

	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if p.temp > 0 {
		params.Temperature = anthropic.Float(p.temp)
	}
	if len(req.ToolSpecs) > 0 {
		params.Tools = convertTools(req.ToolSpecs)
	}

	return &stream{
		inner: p.client.Messages.NewStreaming(ctx, params),
		start: time.Now(),
	}, nil
}

// convertMessages maps the conversation to Anthropic message params.
// Reasoning blocks are not replayed.
func convertMessages(msgs []message.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch {
			case block.Text != nil:
				blocks = append(blocks, anthropic.NewTextBlock(*block.Text))
			case block.ToolUse != nil:
				blocks = append(blocks, anthropic.NewToolUseBlock(
					block.ToolUse.ID, block.ToolUse.Input, block.ToolUse.Name,
				))
			case block.ToolResult != nil:
				blocks = append(blocks, anthropic.NewToolResultBlock(
					block.ToolResult.ToolUseID,
					resultText(block.ToolResult),
					block.ToolResult.Status == message.ToolResultError,
				))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		role := anthropic.MessageParamRoleUser
		if msg.Role == message.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
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

func convertTools(specs []provider.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		tool := anthropic.ToolParam{
			Name:        spec.Name,
			InputSchema: anthropic.ToolInputSchemaParam{Properties: spec.InputSchema["properties"]},
		}
		if spec.Description != "" {
			tool.Description = anthropic.String(spec.Description)
		}
		if required, ok := spec.InputSchema["required"].([]any); ok {
			names := make([]string, 0, len(required))
			for _, entry := range required {
				if name, ok := entry.(string); ok {
					names = append(names, name)
				}
			}
			tool.InputSchema.Required = names
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return out
}

// stream translates SDK stream events one at a time. An SDK event can map
// to more than one delta event, so translated events queue in pending.
type stream struct {
	inner   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	start   time.Time
	current provider.StreamEvent
	pending []provider.StreamEvent
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

func (s *stream) translate(event anthropic.MessageStreamEventUnion) []provider.StreamEvent {
	switch e := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		return []provider.StreamEvent{
			{MessageStart: &provider.MessageStartEvent{Role: message.RoleAssistant}},
			{Metadata: &provider.MetadataEvent{Usage: telemetry.Usage{
				InputTokens: int(e.Message.Usage.InputTokens),
				TotalTokens: int(e.Message.Usage.InputTokens),
			}}},
		}

	case anthropic.ContentBlockStartEvent:
		start := &provider.ContentBlockStartEvent{Index: int(e.Index)}
		if block, ok := e.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
			start.ToolUse = &provider.ToolUseStart{ID: block.ID, Name: block.Name}
		}
		return []provider.StreamEvent{{ContentBlockStart: start}}

	case anthropic.ContentBlockDeltaEvent:
		delta := provider.Delta{}
		switch d := e.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			delta.Text = d.Text
		case anthropic.InputJSONDelta:
			delta.ToolUseInput = d.PartialJSON
		case anthropic.ThinkingDelta:
			delta.ReasoningText = d.Thinking
		case anthropic.SignatureDelta:
			delta.ReasoningSignature = d.Signature
		default:
			return nil
		}
		return []provider.StreamEvent{{ContentBlockDelta: &provider.ContentBlockDeltaEvent{
			Index: int(e.Index),
			Delta: delta,
		}}}

	case anthropic.ContentBlockStopEvent:
		return []provider.StreamEvent{{ContentBlockStop: &provider.ContentBlockStopEvent{Index: int(e.Index)}}}

	case anthropic.MessageDeltaEvent:
		return []provider.StreamEvent{
			{MessageStop: &provider.MessageStopEvent{StopReason: mapStopReason(e.Delta.StopReason)}},
			{Metadata: &provider.MetadataEvent{
				Usage: telemetry.Usage{
					OutputTokens: int(e.Usage.OutputTokens),
					TotalTokens:  int(e.Usage.OutputTokens),
				},
				LatencyMs: time.Since(s.start).Milliseconds(),
			}},
		}

	default:
		// message_stop and ping carry nothing the assembly needs.
		return nil
	}
}

func mapStopReason(reason anthropic.StopReason) message.StopReason {
	switch reason {
	case anthropic.StopReasonToolUse:
		return message.StopToolUse
	case anthropic.StopReasonMaxTokens:
		return message.StopMaxTokens
	case anthropic.StopReasonStopSequence:
		return message.StopStopSequence
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
	var apierr *anthropic.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apierr.Error()), "prompt is too long") {
		return &provider.ContextOverflowError{Provider: "anthropic", Cause: err}
	}
	return err
}
