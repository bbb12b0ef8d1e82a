package types

import "errors"

var (
	// ErrValidation is returned for malformed or empty input, before any external call
	ErrValidation = errors.New("validation error")

	// ErrProviderUnavailable is returned when an embedding or generation call fails.
	// Callers own the retry policy.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNotFound is returned when a session or entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a stale session write is detected
	ErrConflict = errors.New("conflict")
)
