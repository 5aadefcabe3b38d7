package tools

import (
	"context"
	"sync"
)

// RequestState is an opaque mapping tools may populate to signal the
// calling layer, e.g. asking the event loop to stop. It is shared across a
// concurrently dispatched batch, so access is synchronized.
type RequestState struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewRequestState creates a request state seeded from initial (may be nil).
func NewRequestState(initial map[string]any) *RequestState {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &RequestState{values: values}
}

// Set stores a value under key.
func (s *RequestState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value under key.
func (s *RequestState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// Values returns a shallow copy of the mapping.
func (s *RequestState) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

type requestStateKey struct{}

// WithRequestState attaches the request state to the context so tools can
// reach it during Invoke.
func WithRequestState(ctx context.Context, state *RequestState) context.Context {
	return context.WithValue(ctx, requestStateKey{}, state)
}

// RequestStateFromContext returns the request state attached to the
// context, or nil.
func RequestStateFromContext(ctx context.Context) *RequestState {
	state, _ := ctx.Value(requestStateKey{}).(*RequestState)
	return state
}
