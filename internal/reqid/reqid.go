// Package reqid generates log-correlation ids for outbound controller
// requests. These ids are not part of the envelope contract and are never
// observed by callers.
package reqid

import "github.com/google/uuid"

// New returns a fresh correlation id.
func New() string {
	return uuid.New().String()
}
