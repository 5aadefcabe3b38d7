// Package state provides the agent's key-value state container. Values are
// stored in serialized form: every write and every read passes through a
// JSON round trip, so mutating a value the caller passed in, or a value
// handed back out, can never retroactively change stored state.
package state

import (
	"encoding/json"
	"fmt"
	"sync"
)

// AgentState is a JSON-serializable key-value store. Non-serializable
// values are rejected at write time rather than silently coerced.
type AgentState struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// New creates an AgentState seeded with the given initial values. Every
// initial value must be JSON-serializable.
func New(initial map[string]any) (*AgentState, error) {
	s := &AgentState{data: make(map[string]json.RawMessage)}
	for key, value := range initial {
		if err := s.Set(key, value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Set stores a copy of value under key. The value is serialized at call
// time, so later mutation of the caller's original has no effect.
func (s *AgentState) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state value for %q is not JSON serializable: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

// Get returns a fresh copy of the value under key, or nil if absent.
// Mutating the returned value does not change stored state.
func (s *AgentState) Get(key string) any {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

// Delete removes the value under key.
func (s *AgentState) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// All returns a fresh copy of the entire state mapping.
func (s *AgentState) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.data))
	for key, raw := range s.data {
		var value any
		if err := json.Unmarshal(raw, &value); err == nil {
			out[key] = value
		}
	}
	return out
}
