package db

import "errors"

// Domain-level database error sentinels.
var (
	// Share errors
	ErrShareNotFound = errors.New("share not found")
	ErrDuplicateLink = errors.New("share link already exists")

	// File errors
	ErrFileNotFound = errors.New("file not found")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)
