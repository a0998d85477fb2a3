package service

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingForwardingURL is returned when neither the submission nor the
	// server configuration names a destination webhook.
	ErrMissingForwardingURL = errors.New("forwarding URL is required")

	// ErrDestinationNotAllowed is returned when the submission names a host
	// outside the configured allowlist.
	ErrDestinationNotAllowed = errors.New("forwarding URL host is not allowed")
)

// DownstreamError is returned when the destination webhook answered with a
// non-2xx status. Body holds the destination's response text verbatim.
type DownstreamError struct {
	StatusCode int
	Body       string
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("destination returned status %d: %s", e.StatusCode, e.Body)
}

// IsValidationError reports whether err was raised before any outbound call.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingForwardingURL) || errors.Is(err, ErrDestinationNotAllowed)
}
