package domain

import "errors"

var (
	// ErrValidation marks missing or malformed input, including an unknown hall.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when the requested slot overlaps a confirmed booking.
	ErrConflict = errors.New("slot not available")
	ErrNotFound = errors.New("not found")
)
