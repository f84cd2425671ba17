// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Session and authentication errors.
var (
	// ErrSessionUnavailable indicates re-authentication exhausted its retry budget.
	ErrSessionUnavailable = errors.New("session unavailable")

	// ErrLoginRejected indicates the target service refused the credentials.
	ErrLoginRejected = errors.New("login rejected")

	// ErrSessionExpired indicates the target service invalidated an
	// authenticated session mid-use.
	ErrSessionExpired = errors.New("session expired")

	// ErrWorkerLoginFailed indicates a detail-fetch worker could not establish its session.
	ErrWorkerLoginFailed = errors.New("worker login failed")

	// ErrGatewayClosed indicates an operation was submitted to a stopped gateway.
	ErrGatewayClosed = errors.New("gateway closed")
)

// Job validation errors.
var (
	// ErrInvalidWeights indicates similarity and secondary weights do not sum to 1.0.
	ErrInvalidWeights = errors.New("invalid weights")

	// ErrNoKeywords indicates a job was submitted without any keywords.
	ErrNoKeywords = errors.New("no keywords")

	// ErrJobNotFound indicates a request id is not in the active-job registry.
	ErrJobNotFound = errors.New("job not found")
)

// Pipeline errors.
var (
	// ErrDetailFetchFailed indicates a single entity's detail fetch failed.
	// Always wrapped with the entity reference and the underlying cause.
	ErrDetailFetchFailed = errors.New("detail fetch failed")

	// ErrCancelled indicates the job was cooperatively cancelled; partial
	// results up to the cancel point remain valid.
	ErrCancelled = errors.New("cancelled")
)

// Response and lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrHTTPStatusNotOK indicates an HTTP response with a non-2xx status code.
	ErrHTTPStatusNotOK = errors.New("HTTP status not OK")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
