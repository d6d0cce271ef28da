package domain

import "errors"

var (
	// ErrValidation marks malformed caller input, surfaced synchronously.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for entities that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks writes that collide with existing state.
	ErrConflict = errors.New("conflict")
)
