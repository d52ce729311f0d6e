package cart

import "errors"

var (
	ErrNoUser      = errors.New("user id is required")
	ErrInvalidItem = errors.New("invalid cart item")

	// ErrCartUnavailable means the persisted cart could not be read. The
	// in-memory cart is left unloaded.
	ErrCartUnavailable = errors.New("cart temporarily unavailable")
)
