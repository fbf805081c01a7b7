package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches, including rows owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("duplicate key")
)
