package storage

import "errors"

// Errors shared by all store backends. Callers match them with errors.Is.
var (
	// ErrNotFound is returned when a saved condition or snapshot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned on insert of an existing condition name
	// or an existing (strategy, date) snapshot. Stores never update in place.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when a record misses its key fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidRange is returned when a range query has start after end.
	ErrInvalidRange = errors.New("invalid range: start after end")
)
