package kb

import (
	"errors"
	"fmt"
)

// Sentinel errors for knowledge-box operations.
// These are part of the client's public API; check with errors.Is().
var (
	// ErrUpstreamUnavailable indicates the service call failed or timed out.
	ErrUpstreamUnavailable = errors.New("knowledge-box unavailable")

	// ErrCredential indicates the service rejected the credential, or a
	// temporary signed URL could not be issued.
	ErrCredential = errors.New("knowledge-box credential rejected")

	// ErrResourceNotFound indicates the requested resource or file does
	// not exist in the knowledge box.
	ErrResourceNotFound = errors.New("resource not found")
)

// statusError converts an upstream HTTP status into the matching sentinel.
// The response body is truncated and attached for diagnostics; it never
// contains sabio's own credential.
func statusError(status int, body []byte) error {
	const maxDetail = 600
	detail := string(body)
	if len(detail) > maxDetail {
		detail = detail[:maxDetail]
	}

	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%w (status %d): %s", ErrCredential, status, detail)
	case status == 404:
		return fmt.Errorf("%w (status %d)", ErrResourceNotFound, status)
	default:
		return fmt.Errorf("%w (status %d): %s", ErrUpstreamUnavailable, status, detail)
	}
}
