package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotorlab/rotor/internal/tracing"
	"github.com/rotorlab/rotor/pkg/message"
)

// DirectCallOption adjusts a single direct tool invocation.
type DirectCallOption func(*directCallOptions)

type directCallOptions struct {
	userMessageOverride string
	record              *bool
}

// WithUserMessageOverride prepends the given text to the recorded audit
// message.
func WithUserMessageOverride(text string) DirectCallOption {
	return func(o *directCallOptions) {
		o.userMessageOverride = text
	}
}

// WithRecord overrides the agent's record-direct-tool-call flag for this
// invocation only.
func WithRecord(record bool) DirectCallOption {
	return func(o *directCallOptions) {
		o.record = &record
	}
}

// ToolCall invokes a registered tool directly, bypassing the provider
// round trip but using the same execution path as the event loop. Unless
// suppressed, a user-role message recording the call is appended to the
// conversation as an audit trail.
func (a *Agent) ToolCall(ctx context.Context, name string, input map[string]any, opts ...DirectCallOption) (message.ToolResult, error) {
	var options directCallOptions
	for _, opt := range opts {
		opt(&options)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}

	use := message.ToolUse{
		ID:    a.idgen(name),
		Name:  name,
		Input: input,
	}

	results, err := a.executor.Execute(ctx, []message.ToolUse{use})
	if err != nil {
		return message.ToolResult{}, fmt.Errorf("direct tool call %s: %w", name, err)
	}
	result := results[0]

	record := a.recordDirectToolCall
	if options.record != nil {
		record = *options.record
	}
	if record {
		a.recordDirectCall(ctx, name, input, options.userMessageOverride)
	}

	return result, nil
}

// recordDirectCall appends the audit message and reapplies conversation
// management.
func (a *Agent) recordDirectCall(ctx context.Context, name string, input map[string]any, override string) {
	serialized, err := json.Marshal(input)
	if err != nil {
		// Input came through the executor already, so this is unreachable
		// for JSON-shaped values; record a placeholder if not.
		serialized = []byte("{}")
	}

	var blocks []message.ContentBlock
	if override != "" {
		blocks = append(blocks, message.TextBlock(override+"\n"))
	}
	blocks = append(blocks, message.TextBlock(
		fmt.Sprintf("agent.tool.%s direct tool call.\nInput parameters: %s\n", name, serialized),
	))

	a.messages = append(a.messages, message.NewUser(blocks...))
	a.messages = a.manager.ApplyManagement(a.messages)
	a.persist(ctx, a.logger)
}
