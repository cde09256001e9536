package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks a transient transport or server failure. Transient
// failures are retried with backoff and never surfaced to the user; the
// pending queue stays untouched.
type ErrUnavailable struct {
	Status int // HTTP status, 0 for transport errors
	Err    error
}

func (e *ErrUnavailable) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("sync service unavailable (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("sync service unavailable: %v", e.Err)
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrRejected marks a server-side validation rejection of a whole request
// (as opposed to per-action rejection inside a batch response). Not
// retryable.
type ErrRejected struct {
	Status int
	Body   string
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("sync service rejected request (status %d): %s", e.Status, e.Body)
}

// IsTransient reports whether err should be retried. Context cancellation
// is never transient.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rej *ErrRejected
	if errors.As(err, &rej) {
		return false
	}
	var unavail *ErrUnavailable
	if errors.As(err, &unavail) {
		return true
	}
	// Unclassified errors (network, etc.) are treated as transient.
	return true
}
