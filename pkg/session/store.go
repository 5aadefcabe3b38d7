// Package session persists conversations between agent instances. Messages
// round-trip through their plain-JSON wire shape, so a session written by
// one process can be resumed by another.
package session

import (
	"context"
	"fmt"

	"github.com/rotorlab/rotor/pkg/message"
)

// Store is the persistence capability consumed by the agent facade.
type Store interface {
	// Save replaces the stored conversation for a session.
	Save(ctx context.Context, sessionID string, msgs []message.Message) error
	// Load returns the stored conversation, or an empty slice for an
	// unknown session.
	Load(ctx context.Context, sessionID string) ([]message.Message, error)
	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// validateSessionID guards against path and SQL surprises from
// caller-supplied identifiers.
func validateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	for _, r := range sessionID {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return fmt.Errorf("session ID contains invalid character %q", r)
	}
	return nil
}
