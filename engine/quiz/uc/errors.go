package uc

import "errors"

var (
	// ErrTestNotFound is returned when no live test has the requested id.
	ErrTestNotFound = errors.New("test not found")
	// ErrInvalidInput wraps validation failures of use case inputs.
	ErrInvalidInput = errors.New("invalid input")
)
