package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a unique field is already taken.
	ErrConflict = errors.New("repository: conflict")
)
