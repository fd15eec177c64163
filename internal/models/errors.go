package models

import "errors"

// ErrValidation marks input rejected at the call boundary. No state is
// changed when it is returned.
var ErrValidation = errors.New("validation failed")

// ValidationError describes which field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
