package provider

import (
	"errors"
	"fmt"
)

// ContextOverflowError reports that the supplied context exceeded the
// model's window. The event loop treats it as recoverable: conversation
// reduction plus a bounded retry.
type ContextOverflowError struct {
	Provider string
	Cause    error
}

func (e *ContextOverflowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: context window overflow: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s: context window overflow", e.Provider)
}

func (e *ContextOverflowError) Unwrap() error {
	return e.Cause
}

// IsContextOverflow reports whether err is, or wraps, a context overflow.
func IsContextOverflow(err error) bool {
	var overflow *ContextOverflowError
	return errors.As(err, &overflow)
}
