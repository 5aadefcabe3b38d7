package tools

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// IDGenerator produces tool-use identifiers for direct invocations. It is
// an injectable dependency so deterministic tests can pin its output.
type IDGenerator func(toolName string) string

const idAlphabet = "0123456789"

// DefaultIDGenerator yields identifiers of the form tooluse_<name>_<n>,
// where <n> is a random 9-digit string.
func DefaultIDGenerator(toolName string) string {
	n, err := gonanoid.Generate(idAlphabet, 9)
	if err != nil {
		// The only failure mode is the OS random source; fall back to a
		// constant rather than propagating an error for an identifier.
		n = "0"
	}
	return fmt.Sprintf("tooluse_%s_%s", toolName, n)
}
