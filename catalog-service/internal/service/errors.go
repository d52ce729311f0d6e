package service

import "errors"

var (
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrForbidden       = errors.New("only the canteen owner can change its menu")
)

// ValidationError is a rejected menu change. Message is shown to the seller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }
