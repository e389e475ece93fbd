package dataset

import "errors"

var (
	// ErrMissingInput is returned when an upstream artifact does not exist.
	ErrMissingInput = errors.New("missing input file")

	// ErrSchema is returned when a required column is absent.
	ErrSchema = errors.New("schema validation failed")

	// ErrPersistence is returned when writing to the destination store fails.
	ErrPersistence = errors.New("persistence failed")
)
