package service

import "errors"

var (
	ErrUnauthenticated   = errors.New("user not authenticated")
	ErrForbidden         = errors.New("not allowed to access this order")
	ErrIllegalTransition = errors.New("illegal transition of order status")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
)

// ValidationError is a rejected draft. Message is shown to the customer as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
