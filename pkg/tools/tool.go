// Package tools models invocable tools: the capability interface, a
// name-indexed registry with input-schema validation, and the executor that
// dispatches batches of tool invocations within a concurrency ceiling.
package tools

import (
	"context"

	"github.com/rotorlab/rotor/pkg/message"
)

// Tool is the single capability the loop knows about. Implementations are
// polymorphic; there is no reflection-based dispatch.
type Tool interface {
	Name() string
	Description() string
	// InputSchema returns the declared JSON schema for the tool's input,
	// or nil when the tool accepts anything.
	InputSchema() map[string]any
	Invoke(ctx context.Context, input map[string]any) ([]message.ToolResultContent, error)
}

// Handler is the function signature for plain-function tools. A string
// result becomes text content; any other value becomes a JSON content
// element.
type Handler func(ctx context.Context, input map[string]any) (any, error)

// Func adapts a plain function into a Tool.
type Func struct {
	name        string
	description string
	schema      map[string]any
	handler     Handler
}

// NewFunc builds a function-backed tool. schema may be nil.
func NewFunc(name, description string, schema map[string]any, handler Handler) *Func {
	return &Func{
		name:        name,
		description: description,
		schema:      schema,
		handler:     handler,
	}
}

func (f *Func) Name() string                { return f.name }
func (f *Func) Description() string         { return f.description }
func (f *Func) InputSchema() map[string]any { return f.schema }

func (f *Func) Invoke(ctx context.Context, input map[string]any) ([]message.ToolResultContent, error) {
	out, err := f.handler(ctx, input)
	if err != nil {
		return nil, err
	}
	switch value := out.(type) {
	case nil:
		return nil, nil
	case string:
		return []message.ToolResultContent{{Text: value}}, nil
	case []message.ToolResultContent:
		return value, nil
	default:
		return []message.ToolResultContent{{JSON: value}}, nil
	}
}
