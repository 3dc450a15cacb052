package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest is returned when a fetch is refused before any
	// request goes on the wire, for a malformed key or URL. It is never
	// retryable.
	ErrInvalidRequest = errors.New("invalid thread page request")

	// ErrEmptyResponse is returned when the server answers with a
	// success status but no usable body.
	ErrEmptyResponse = errors.New("empty response body")
)

// StatusError reports a non-success HTTP status.
type StatusError struct {
	// Code is the HTTP status code of the response.
	Code int
}

// Error returns the status code with its standard reason phrase.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// IsRetryable reports whether a fetch failure is worth another attempt.
// Client-side refusals and definitive 4xx answers are not; server
// errors, rate limiting, and transport failures are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidRequest) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError ||
			statusErr.Code == http.StatusTooManyRequests
	}
	return true
}
