package eventloop

import (
	"encoding/json"
	"strings"

	"github.com/rotorlab/rotor/pkg/events"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/rotorlab/rotor/pkg/telemetry"
	"github.com/rotorlab/rotor/pkg/tools"
)

// assembly is the outcome of consuming one provider stream: the assembled
// message, the stop reason, and any usage the provider reported.
type assembly struct {
	message    message.Message
	stopReason message.StopReason
	usage      telemetry.Usage
}

// assembler folds provider delta events into an in-progress message while
// re-emitting each raw event followed by its derived counterpart.
type assembler struct {
	emitter      *events.Emitter
	cycleID      string
	traceID      string
	spanID       string
	requestState *tools.RequestState

	blocks []message.ContentBlock

	text       strings.Builder
	textActive bool

	toolID    string
	toolName  string
	toolInput strings.Builder
	toolOpen  bool

	reasoningText   strings.Builder
	reasoningSig    strings.Builder
	reasoningActive bool

	stopReason message.StopReason
	usage      telemetry.Usage
}

// consume drains the stream to completion. The stream is closed before
// returning; a stream error aborts assembly and is returned as-is so the
// caller can distinguish a capacity overflow from other failures.
func (a *assembler) consume(stream provider.Stream) (*assembly, error) {
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		a.emitter.Emit(events.DeltaEvent{Event: event})
		a.fold(event)
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}

	a.flushBlock()
	if a.stopReason == "" {
		a.stopReason = message.StopEndTurn
	}
	return &assembly{
		message:    message.NewAssistant(a.blocks...),
		stopReason: a.stopReason,
		usage:      a.usage,
	}, nil
}

func (a *assembler) fold(event provider.StreamEvent) {
	switch {
	case event.ContentBlockStart != nil:
		a.flushBlock()
		if use := event.ContentBlockStart.ToolUse; use != nil {
			a.toolID = use.ID
			a.toolName = use.Name
			a.toolOpen = true
		}

	case event.ContentBlockDelta != nil:
		a.foldDelta(event.ContentBlockDelta.Delta)

	case event.ContentBlockStop != nil:
		a.flushBlock()

	case event.MessageStop != nil:
		a.stopReason = event.MessageStop.StopReason

	case event.Metadata != nil:
		a.usage.Add(event.Metadata.Usage)
	}
}

func (a *assembler) foldDelta(delta provider.Delta) {
	derived := events.ContentEvent{
		CycleID:      a.cycleID,
		TraceID:      a.traceID,
		SpanID:       a.spanID,
		RequestState: a.requestState.Values(),
	}

	switch {
	case delta.Text != "":
		a.text.WriteString(delta.Text)
		a.textActive = true
		derived.TextDelta = delta.Text

	case delta.ToolUseInput != "" && a.toolOpen:
		a.toolInput.WriteString(delta.ToolUseInput)
		derived.ToolUse = &events.ToolUseProgress{
			ID:           a.toolID,
			Name:         a.toolName,
			PartialInput: a.toolInput.String(),
		}

	case delta.ReasoningText != "" || delta.ReasoningSignature != "":
		a.reasoningText.WriteString(delta.ReasoningText)
		a.reasoningSig.WriteString(delta.ReasoningSignature)
		a.reasoningActive = true
		derived.Reasoning = &events.ReasoningProgress{
			Text:      a.reasoningText.String(),
			Signature: a.reasoningSig.String(),
		}

	default:
		return
	}

	a.emitter.Emit(derived)
}

// flushBlock appends the block under construction, if any, to the message
// and resets the accumulators.
func (a *assembler) flushBlock() {
	switch {
	case a.toolOpen:
		a.blocks = append(a.blocks, message.ToolUseBlock(message.ToolUse{
			ID:    a.toolID,
			Name:  a.toolName,
			Input: parseToolInput(a.toolInput.String()),
		}))
		a.toolID, a.toolName = "", ""
		a.toolInput.Reset()
		a.toolOpen = false

	case a.reasoningActive:
		a.blocks = append(a.blocks, message.ReasoningBlock(
			a.reasoningText.String(),
			a.reasoningSig.String(),
		))
		a.reasoningText.Reset()
		a.reasoningSig.Reset()
		a.reasoningActive = false

	case a.textActive:
		a.blocks = append(a.blocks, message.TextBlock(a.text.String()))
		a.text.Reset()
		a.textActive = false
	}
}

// parseToolInput parses the accumulated tool-use input JSON. Accumulation
// failure yields an empty input object, not a hard failure.
func parseToolInput(raw string) map[string]any {
	input := map[string]any{}
	if raw == "" {
		return input
	}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return map[string]any{}
	}
	return input
}
