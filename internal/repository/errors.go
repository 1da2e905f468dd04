package repository

import "errors"

// Common repository errors.
var (
	// ErrNotFound means the requested record or key does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means a unique constraint was violated.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Resource specific aliases.
var (
	ErrUserNotFound  = ErrNotFound
	ErrStateNotFound = ErrNotFound
)
