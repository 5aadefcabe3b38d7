// Package events defines the typed event stream an event-loop cycle emits:
// an inline synchronous callback and an asynchronous pull stream drain the
// same ordered sequence.
package events

import (
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
)

// Event is one item on the cycle's event stream.
type Event interface {
	// Type is a stable name for the event shape, for consumers that
	// switch on it instead of type-asserting.
	Type() string
}

// InitEvent marks the start of a cycle, before the first provider call.
// Attributes carries caller-forwarded context.
type InitEvent struct {
	CycleID    string         `json:"cycle_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (InitEvent) Type() string { return "init_event_loop" }

// DeltaEvent re-emits a raw provider delta event verbatim.
type DeltaEvent struct {
	Event provider.StreamEvent `json:"event"`
}

func (DeltaEvent) Type() string { return "delta" }

// ToolUseProgress is the in-progress accumulator of a streaming tool-use
// block: input JSON collected so far, not yet parsed.
type ToolUseProgress struct {
	ID           string `json:"toolUseId"`
	Name         string `json:"name"`
	PartialInput string `json:"partialInput"`
}

// ReasoningProgress is the accumulated reasoning text and signature.
type ReasoningProgress struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// ContentEvent is the derived event following each raw delta, carrying the
// in-progress assembled state plus contextual identifiers. It always
// follows its raw counterpart, never precedes it.
type ContentEvent struct {
	CycleID      string             `json:"cycle_id"`
	TraceID      string             `json:"trace_id,omitempty"`
	SpanID       string             `json:"span_id,omitempty"`
	TextDelta    string             `json:"text,omitempty"`
	ToolUse      *ToolUseProgress   `json:"current_tool_use,omitempty"`
	Reasoning    *ReasoningProgress `json:"reasoning,omitempty"`
	RequestState map[string]any     `json:"request_state,omitempty"`
}

func (ContentEvent) Type() string { return "content" }

// ToolResultEvent reports one completed tool round, results in request
// order.
type ToolResultEvent struct {
	CycleID string               `json:"cycle_id"`
	Results []message.ToolResult `json:"results"`
}

func (ToolResultEvent) Type() string { return "tool_result" }

// MessageEvent carries a finished assembled message.
type MessageEvent struct {
	Message message.Message `json:"message"`
}

func (MessageEvent) Type() string { return "message" }
