package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotorlab/rotor/internal/tracing"
	"github.com/rotorlab/rotor/pkg/eventloop"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/xeipuuv/gojsonschema"
)

// structuredOutputTool is the synthetic tool the model is asked to call
// with the extracted value.
const structuredOutputTool = "structured_output"

// StructuredOutput runs one provider round asking the model to extract a
// value matching schema from the conversation plus prompt, validates the
// result against the schema, and unmarshals it into target. The
// conversation itself is not modified.
func (a *Agent) StructuredOutput(ctx context.Context, prompt string, schema map[string]any, target any) error {
	if schema == nil {
		return fmt.Errorf("schema is required")
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid structured output schema: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}

	msgs := message.CloneAll(a.messages)
	msgs = append(msgs, message.NewUser(message.TextBlock(prompt)))

	msg, _, _, err := eventloop.AssembleOnce(ctx, a.provider, provider.Request{
		Messages: msgs,
		ToolSpecs: []provider.ToolSpec{{
			Name:        structuredOutputTool,
			Description: "Record the extracted structured output.",
			InputSchema: schema,
		}},
		SystemPrompt: a.systemPrompt,
	}, nil)
	if err != nil {
		return err
	}

	for _, use := range msg.ToolUses() {
		if use.Name != structuredOutputTool {
			continue
		}

		validation, err := compiled.Validate(gojsonschema.NewGoLoader(use.Input))
		if err != nil {
			return fmt.Errorf("validating structured output: %w", err)
		}
		if !validation.Valid() {
			return fmt.Errorf("structured output does not match schema: %s", validation.Errors()[0].String())
		}

		raw, err := json.Marshal(use.Input)
		if err != nil {
			return fmt.Errorf("encoding structured output: %w", err)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decoding structured output: %w", err)
		}
		return nil
	}

	return fmt.Errorf("model did not produce structured output")
}
