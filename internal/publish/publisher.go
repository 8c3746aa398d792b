// Package publish holds the outbound summary adapters. Each platform
// enforces its own maximum message length; publish failures are logged by
// the caller, never retried synchronously, and never fatal to a reporting
// run.
package publish

import (
	"context"
)

// Result identifies a published message on its platform.
type Result struct {
	ID string
}

// Publisher posts a summary to one platform.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, message string) (Result, error)
}

// Truncate caps message at max runes deterministically, replacing the tail
// with an ellipsis when it does not fit. It never fails: an oversized
// computed summary is a formatting concern, not an error.
func Truncate(message string, max int) string {
	if max <= 0 {
		return message
	}
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
