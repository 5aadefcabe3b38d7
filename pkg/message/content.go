package message

// ContentBlock is a tagged variant: exactly one of its fields is populated.
// The JSON shape uses one key per arm, which is the portability contract for
// logging, persistence, and cross-provider normalization.
type ContentBlock struct {
	Text       *string     `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"toolUse,omitempty"`
	ToolResult *ToolResult `json:"toolResult,omitempty"`
	Reasoning  *Reasoning  `json:"reasoningContent,omitempty"`
}

// ToolUse is a provider-requested tool invocation.
type ToolUse struct {
	ID    string         `json:"toolUseId"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResultStatus reports whether a tool invocation succeeded.
type ToolResultStatus string

const (
	ToolResultSuccess ToolResultStatus = "success"
	ToolResultError   ToolResultStatus = "error"
)

// ToolResult carries the outcome of one tool invocation back to the
// provider. Content order is preserved.
type ToolResult struct {
	ToolUseID string              `json:"toolUseId"`
	Status    ToolResultStatus    `json:"status"`
	Content   []ToolResultContent `json:"content"`
}

// ToolResultContent is one element of a tool result: either text or an
// arbitrary JSON value.
type ToolResultContent struct {
	Text string `json:"text,omitempty"`
	JSON any    `json:"json,omitempty"`
}

// Reasoning carries provider reasoning text with an opaque signature.
type Reasoning struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(s string) ContentBlock {
	return ContentBlock{Text: &s}
}

// ToolUseBlock builds a tool-use content block.
func ToolUseBlock(use ToolUse) ContentBlock {
	return ContentBlock{ToolUse: &use}
}

// ToolResultBlock builds a tool-result content block.
func ToolResultBlock(result ToolResult) ContentBlock {
	return ContentBlock{ToolResult: &result}
}

// ReasoningBlock builds a reasoning content block.
func ReasoningBlock(text, signature string) ContentBlock {
	return ContentBlock{Reasoning: &Reasoning{Text: text, Signature: signature}}
}

// SuccessResult builds a success-status tool result with a single text
// content element.
func SuccessResult(toolUseID, text string) ToolResult {
	return ToolResult{
		ToolUseID: toolUseID,
		Status:    ToolResultSuccess,
		Content:   []ToolResultContent{{Text: text}},
	}
}

// ErrorResult builds an error-status tool result with a single text content
// element.
func ErrorResult(toolUseID, text string) ToolResult {
	return ToolResult{
		ToolUseID: toolUseID,
		Status:    ToolResultError,
		Content:   []ToolResultContent{{Text: text}},
	}
}

// Clone returns a structurally independent copy of the block.
func (b ContentBlock) Clone() ContentBlock {
	var out ContentBlock
	if b.Text != nil {
		s := *b.Text
		out.Text = &s
	}
	if b.ToolUse != nil {
		use := ToolUse{
			ID:    b.ToolUse.ID,
			Name:  b.ToolUse.Name,
			Input: copyValue(b.ToolUse.Input).(map[string]any),
		}
		out.ToolUse = &use
	}
	if b.ToolResult != nil {
		result := ToolResult{
			ToolUseID: b.ToolResult.ToolUseID,
			Status:    b.ToolResult.Status,
			Content:   make([]ToolResultContent, len(b.ToolResult.Content)),
		}
		for i, c := range b.ToolResult.Content {
			result.Content[i] = ToolResultContent{Text: c.Text, JSON: copyValue(c.JSON)}
		}
		out.ToolResult = &result
	}
	if b.Reasoning != nil {
		reasoning := *b.Reasoning
		out.Reasoning = &reasoning
	}
	return out
}

// copyValue deep-copies JSON-shaped values (maps, slices, scalars).
func copyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		if value == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(value))
		for k, elem := range value {
			out[k] = copyValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, elem := range value {
			out[i] = copyValue(elem)
		}
		return out
	default:
		return v
	}
}
