package conversation

import (
	"encoding/json"

	"github.com/rotorlab/rotor/pkg/message"
)

// DefaultWindowSize is the window applied when none is configured.
const DefaultWindowSize = 40

// oversizedResultText replaces a tool result that pushed the conversation
// past the model's context window.
const oversizedResultText = "The tool result was too large!"

// SlidingWindowManager keeps the conversation within a bounded tail window
// and shrinks it on overflow, optionally truncating oversized tool results
// before dropping whole messages.
type SlidingWindowManager struct {
	windowSize      int
	truncateResults bool
}

// NewSlidingWindow creates a manager with the given window size (message
// count). truncateResults controls whether oversized tool results may be
// replaced with an error placeholder before messages are dropped.
func NewSlidingWindow(windowSize int, truncateResults bool) *SlidingWindowManager {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	return &SlidingWindowManager{
		windowSize:      windowSize,
		truncateResults: truncateResults,
	}
}

// ApplyManagement trims the conversation to the configured window from the
// tail. The cut never splits a tool-use/tool-result pair: if the first kept
// message would be a dangling tool result, the cut advances past it.
func (m *SlidingWindowManager) ApplyManagement(msgs []message.Message) []message.Message {
	if len(msgs) <= m.windowSize {
		return msgs
	}

	start := len(msgs) - m.windowSize
	for start < len(msgs) && msgs[start].HasToolResult() {
		start++
	}
	return msgs[start:]
}

// ReduceContext shrinks the conversation after a capacity overflow. When
// truncation is enabled the largest not-yet-truncated tool result is
// replaced first; otherwise (or when nothing remains to truncate) the
// oldest message pair is dropped. A conversation at minimal size re-raises
// cause.
func (m *SlidingWindowManager) ReduceContext(msgs []message.Message, cause error) ([]message.Message, error) {
	if m.truncateResults {
		if reduced, ok := truncateLargestResult(msgs); ok {
			return reduced, nil
		}
	}

	if len(msgs) <= 2 {
		return msgs, cause
	}

	// Drop the oldest message, extending the cut past any tool result
	// that would be left dangling.
	trim := 1
	for trim < len(msgs) && msgs[trim].HasToolResult() {
		trim++
	}
	if trim >= len(msgs) {
		return msgs, cause
	}
	return msgs[trim:], nil
}

// truncateLargestResult replaces the content of the largest untruncated
// tool result with the oversized placeholder and flips its status to error.
// Returns false when no eligible result remains.
func truncateLargestResult(msgs []message.Message) ([]message.Message, bool) {
	largestMsg, largestBlock := -1, -1
	largestSize := 0

	for i, msg := range msgs {
		for j, block := range msg.Content {
			if block.ToolResult == nil {
				continue
			}
			if isTruncated(*block.ToolResult) {
				continue
			}
			size := resultSize(*block.ToolResult)
			if size > largestSize {
				largestMsg, largestBlock = i, j
				largestSize = size
			}
		}
	}

	if largestMsg < 0 {
		return msgs, false
	}

	out := message.CloneAll(msgs)
	result := out[largestMsg].Content[largestBlock].ToolResult
	result.Status = message.ToolResultError
	result.Content = []message.ToolResultContent{{Text: oversizedResultText}}
	return out, true
}

func isTruncated(result message.ToolResult) bool {
	return result.Status == message.ToolResultError &&
		len(result.Content) == 1 &&
		result.Content[0].Text == oversizedResultText
}

func resultSize(result message.ToolResult) int {
	size := 0
	for _, content := range result.Content {
		size += len(content.Text)
		if content.JSON != nil {
			if raw, err := json.Marshal(content.JSON); err == nil {
				size += len(raw)
			}
		}
	}
	return size
}
