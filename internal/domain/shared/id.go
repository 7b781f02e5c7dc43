// Package shared holds small domain primitives used by both entity kinds.
package shared

import (
	"strings"

	"github.com/google/uuid"
)

// provisionalPrefix reserves an id space for records that have not been
// confirmed by the remote store. Server-issued ids are bare UUIDs, so the
// prefix guarantees the two spaces never collide.
const provisionalPrefix = "local-"

// NewProvisionalID returns a locally-generated id for an unconfirmed record.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

// IsProvisional reports whether id belongs to the local provisional space.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}
