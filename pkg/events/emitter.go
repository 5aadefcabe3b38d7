package events

import (
	"context"
	"sync"
)

// Callback receives events synchronously, inline with the producer.
type Callback func(Event)

// Emitter is a single-producer event channel with two drains: an inline
// callback invoked per event, and at most one pull-based Stream. The
// producer never blocks; events are buffered for the stream until it is
// closed or abandoned.
type Emitter struct {
	callback Callback

	mu        sync.Mutex
	queue     []Event
	wake      chan struct{}
	stream    *Stream
	attached  bool
	abandoned bool
	closed    bool
	err       error
}

// NewEmitter creates an emitter. cb may be nil.
func NewEmitter(cb Callback) *Emitter {
	return &Emitter{
		callback: cb,
		wake:     make(chan struct{}, 1),
	}
}

// Emit delivers one event: the callback runs inline, then the event is
// buffered for the stream consumer if one is attached and still pulling.
func (e *Emitter) Emit(ev Event) {
	if e.callback != nil {
		e.callback(ev)
	}

	e.mu.Lock()
	if e.closed || !e.attached || e.abandoned {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, ev)
	e.mu.Unlock()
	e.signal()
}

// Close marks the stream complete. Buffered events remain deliverable.
func (e *Emitter) Close() {
	e.CloseWithError(nil)
}

// CloseWithError marks the stream complete with a terminal error. Events
// already emitted are delivered to the consumer first; err is then returned
// on the next pull.
func (e *Emitter) CloseWithError(err error) {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		e.err = err
	}
	e.mu.Unlock()
	e.signal()
}

func (e *Emitter) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Stream attaches the pull consumer. Only events emitted after attachment
// are buffered; call Stream before starting the producer. There is exactly
// one pull consumer per emitter: repeated calls return the same Stream.
func (e *Emitter) Stream() *Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		e.attached = true
		e.stream = &Stream{emitter: e}
	}
	return e.stream
}

// Stream is the asynchronous pull side of an Emitter.
type Stream struct {
	emitter *Emitter
	done    bool
}

// Next returns the next buffered event. ok is false once the stream is
// exhausted; a terminal producer error is returned exactly once, after all
// buffered events have been delivered.
func (s *Stream) Next(ctx context.Context) (Event, bool, error) {
	e := s.emitter
	for {
		e.mu.Lock()
		if len(e.queue) > 0 {
			ev := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return ev, true, nil
		}
		if e.closed || s.done {
			err := e.err
			e.err = nil // terminal error is delivered once
			e.mu.Unlock()
			s.done = true
			return nil, false, err
		}
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-e.wake:
		}
	}
}

// Collect drains the stream and returns every remaining event.
func (s *Stream) Collect(ctx context.Context) ([]Event, error) {
	var items []Event
	for {
		ev, ok, err := s.Next(ctx)
		if err != nil {
			return items, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, ev)
	}
}

// Close abandons the stream: the producer stops buffering and already
// buffered events are dropped. Safe to call multiple times.
func (s *Stream) Close() error {
	e := s.emitter
	e.mu.Lock()
	e.abandoned = true
	e.queue = nil
	e.mu.Unlock()
	s.done = true
	return nil
}
