// Package provider defines the capability consumed by the event loop to
// obtain streamed model responses. Concrete adapters live in subpackages;
// the loop only depends on the interfaces here.
package provider

import (
	"context"

	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/telemetry"
)

// ToolSpec describes one invocable tool to the model.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Request carries everything a provider needs for one invocation.
type Request struct {
	Messages     []message.Message
	ToolSpecs    []ToolSpec
	SystemPrompt string
}

// Provider produces a lazy, finite, non-restartable stream of delta events
// for a request. A context overflow must surface as a *ContextOverflowError
// so the loop can distinguish it from other failures.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Stream iterates provider delta events. The usual consumption pattern
// mirrors the SDK streams the adapters wrap:
//
//	for stream.Next() {
//		event := stream.Current()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream interface {
	Next() bool
	Current() StreamEvent
	Err() error
	Close() error
}

// StreamEvent is a tagged union of provider delta events. Exactly one field
// is populated.
type StreamEvent struct {
	MessageStart      *MessageStartEvent      `json:"messageStart,omitempty"`
	ContentBlockStart *ContentBlockStartEvent `json:"contentBlockStart,omitempty"`
	ContentBlockDelta *ContentBlockDeltaEvent `json:"contentBlockDelta,omitempty"`
	ContentBlockStop  *ContentBlockStopEvent  `json:"contentBlockStop,omitempty"`
	MessageStop       *MessageStopEvent       `json:"messageStop,omitempty"`
	Metadata          *MetadataEvent          `json:"metadata,omitempty"`
}

// MessageStartEvent opens a streamed message.
type MessageStartEvent struct {
	Role message.Role `json:"role"`
}

// ContentBlockStartEvent opens one content block. ToolUse is set when the
// block is a tool invocation; its Input arrives later as deltas.
type ContentBlockStartEvent struct {
	Index   int           `json:"index"`
	ToolUse *ToolUseStart `json:"toolUse,omitempty"`
}

// ToolUseStart announces a tool-use block before its input has streamed.
type ToolUseStart struct {
	ID   string `json:"toolUseId"`
	Name string `json:"name"`
}

// ContentBlockDeltaEvent carries an incremental piece of a content block.
type ContentBlockDeltaEvent struct {
	Index int   `json:"index"`
	Delta Delta `json:"delta"`
}

// Delta is the incremental payload of a block: concatenating text, partial
// tool-use input JSON, or reasoning text/signature.
type Delta struct {
	Text               string `json:"text,omitempty"`
	ToolUseInput       string `json:"toolUseInput,omitempty"`
	ReasoningText      string `json:"reasoningText,omitempty"`
	ReasoningSignature string `json:"reasoningSignature,omitempty"`
}

// ContentBlockStopEvent closes a content block.
type ContentBlockStopEvent struct {
	Index int `json:"index"`
}

// MessageStopEvent terminates the streamed message.
type MessageStopEvent struct {
	StopReason message.StopReason `json:"stopReason"`
}

// MetadataEvent carries usage and latency reported by the provider.
type MetadataEvent struct {
	Usage     telemetry.Usage `json:"usage"`
	LatencyMs int64           `json:"latencyMs,omitempty"`
}
