// Package message defines the conversation data model shared by the event
// loop, tool executor, and providers. Messages and their content blocks are
// plain JSON-representable values; ordering inside Content is significant
// and preserved through every transformation.
package message

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason reports why the provider finished a message.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopToolUse      StopReason = "tool_use"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// NewUser builds a user-role message from content blocks.
func NewUser(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// NewAssistant builds an assistant-role message from content blocks.
func NewAssistant(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// ToolUses returns the tool-use blocks of the message in content order.
func (m Message) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, block := range m.Content {
		if block.ToolUse != nil {
			uses = append(uses, *block.ToolUse)
		}
	}
	return uses
}

// HasToolUse reports whether the message requests at least one tool call.
func (m Message) HasToolUse() bool {
	for _, block := range m.Content {
		if block.ToolUse != nil {
			return true
		}
	}
	return false
}

// HasToolResult reports whether the message carries a tool result block.
func (m Message) HasToolResult() bool {
	for _, block := range m.Content {
		if block.ToolResult != nil {
			return true
		}
	}
	return false
}

// Clone returns a structurally independent copy of the message.
func (m Message) Clone() Message {
	out := Message{Role: m.Role, Content: make([]ContentBlock, len(m.Content))}
	for i, block := range m.Content {
		out.Content[i] = block.Clone()
	}
	return out
}

// CloneAll deep-copies a message slice.
func CloneAll(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
