package rand

import (
	"github.com/google/uuid"
)

// GenerateUuid returns a UUID in string format (including hyphens).
func GenerateUuid() string {
	return uuid.NewString()
}

// GenerateSessionId returns an identifier for one top-level decode or encode call.
// It only ends up in debug logs, where it ties together the events of a single call.
func GenerateSessionId() string {
	return "amf-" + GenerateUuid()
}
