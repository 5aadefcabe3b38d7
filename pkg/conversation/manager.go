// Package conversation provides history management policies for the event
// loop: a no-op variant and a sliding-window variant that trims and, on
// context overflow, shrinks the conversation.
package conversation

import (
	"github.com/rotorlab/rotor/pkg/message"
)

// Manager is the policy object the event loop consults: steady-state
// trimming before each top-level invocation, and reduction when the
// provider reports a capacity overflow.
type Manager interface {
	// ApplyManagement applies the steady-state trimming policy and
	// returns the managed conversation.
	ApplyManagement(msgs []message.Message) []message.Message

	// ReduceContext shrinks the conversation in response to cause. When
	// no further reduction is possible it returns cause itself, so the
	// caller's retry bound is what prevents infinite loops.
	ReduceContext(msgs []message.Message, cause error) ([]message.Message, error)
}

// NullManager performs no management at all.
type NullManager struct{}

// NewNullManager creates a no-op manager.
func NewNullManager() *NullManager { return &NullManager{} }

// ApplyManagement returns the conversation unchanged.
func (*NullManager) ApplyManagement(msgs []message.Message) []message.Message {
	return msgs
}

// ReduceContext re-raises cause immediately.
func (*NullManager) ReduceContext(msgs []message.Message, cause error) ([]message.Message, error) {
	return msgs, cause
}
