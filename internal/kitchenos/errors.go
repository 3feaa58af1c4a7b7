package kitchenos

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for cloud operations.
// Use errors.Is() to classify failures in calling code.
var (
	// ErrAuthFailed indicates the identity provider or the cloud rejected
	// our credentials. AuthError carries the details.
	ErrAuthFailed = errors.New("kitchenos: authentication failed")

	// ErrRequestRejected indicates the cloud rejected a request for a
	// non-auth reason. APIError carries the details.
	ErrRequestRejected = errors.New("kitchenos: request rejected")

	// ErrTransport indicates the request never produced an HTTP response
	// (DNS, TCP, TLS, timeout). Transport failures are never retried
	// automatically.
	ErrTransport = errors.New("kitchenos: transport failure")

	// ErrInvalidCommand indicates a capability builder rejected its input.
	ErrInvalidCommand = errors.New("kitchenos: invalid command")
)

// AuthError describes a rejected authentication exchange or an auth-class
// rejection (401/403) of an API request.
type AuthError struct {
	// Op is the operation that failed: "login", "refresh", "execute", "get".
	Op string

	// Status is the HTTP status code, or 0 when the response was malformed.
	Status int

	// Body is a truncated excerpt of the response body for diagnostics.
	Body string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("kitchenos: %s failed: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("kitchenos: %s failed: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *AuthError) Unwrap() error { return ErrAuthFailed }

// APIError describes a non-auth rejection from the cloud API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kitchenos: request failed: status %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return ErrRequestRejected }

// maxBodyExcerpt bounds error body excerpts so log lines and error chains
// stay readable even when the cloud returns an HTML error page.
const maxBodyExcerpt = 256

// excerpt returns a truncated copy of a response body for error reporting.
func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt]) + "..."
	}
	return string(body)
}

// isAuthStatus reports whether a status code signals an auth-class rejection.
func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// isSuccessStatus reports whether a status code counts as command success.
// The cloud frequently answers 202 for accepted commands.
func isSuccessStatus(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return true
	}
	return false
}
