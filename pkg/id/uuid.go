package id

import (
	"strings"

	"github.com/google/uuid"
)

// GetUUID returns a random v4 UUID. Used for run ids, where creation
// order is tracked separately.
func GetUUID() string {
	return uuid.NewString()
}

// GetUUIDWithoutDashes returns a v4 UUID with the dashes stripped, for
// identifiers embedded in object storage paths.
func GetUUIDWithoutDashes() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
