package model

import "errors"

// Sentinel errors for the service's failure taxonomy. Services wrap these
// with context via fmt.Errorf("...: %w", ...) and the HTTP layer maps them
// to status codes with errors.Is.
var (
	// ErrNotFound indicates a user, task, or credential does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail indicates a user creation collided on email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrValidation indicates a malformed request body or enum value.
	ErrValidation = errors.New("validation failed")

	// ErrNotConfigured indicates the OAuth client id/secret for a source
	// are missing from the environment.
	ErrNotConfigured = errors.New("oauth client not configured")

	// ErrExchangeFailed indicates the authorization-code exchange with the
	// upstream token endpoint failed.
	ErrExchangeFailed = errors.New("oauth code exchange failed")

	// ErrRefreshFailed indicates a token refresh failed; callers should
	// prompt re-authorization rather than retry.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrNotConnected indicates no credential exists for a (user, source)
	// pair.
	ErrNotConnected = errors.New("source not connected")
)
