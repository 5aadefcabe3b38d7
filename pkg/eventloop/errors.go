package eventloop

import "fmt"

// Error wraps an unexpected mid-cycle fault together with the last-known
// request state, so the caller sees both the cause and whatever cooperating
// tools had signalled before the failure.
type Error struct {
	Cause        error
	RequestState map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("event loop cycle failed: %v", e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
