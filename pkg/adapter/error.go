package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// BackendError wraps a backend rejection with status metadata.
type BackendError struct {
	Status int
	Code   string
	Err    error
}

func (e *BackendError) Error() string {
	if e == nil {
		return "backend error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("backend error (status=%d)", e.Status)
}

func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsDefinitive reports whether an error is an authoritative rejection from
// the backend, as opposed to a timeout or cancellation induced by our own
// scheduling. Only definitive failures may count against a backend's
// health; anything cancellation-shaped must never poison a breaker.
//
// A 429 is definitive here: it is the backend's own statement that it will
// not serve the request, and the hedge to the next candidate is the retry.
func IsDefinitive(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	return true
}
