package errors

import "errors"

var (
	ErrNotFound = errors.New("room share not found")

	ErrInvalidID = errors.New("invalid room share ID format")

	ErrVersionConflict = errors.New("room share was modified by another request")
)
