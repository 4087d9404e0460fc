package storage

import "errors"

// Domain-specific errors for storage operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("storage: key not found")

	// ErrEmptyKey is returned when an empty key is provided.
	ErrEmptyKey = errors.New("storage: key cannot be empty")
)
