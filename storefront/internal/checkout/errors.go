package checkout

import "errors"

var (
	ErrNotSignedIn = errors.New("Please sign in to place an order.")
	ErrEmptyCart   = errors.New("Please add items to your cart before placing an order.")
)

const genericFailure = "Unable to place your order. Please try again."

// userFacing is implemented by gateway errors whose text can be shown to the
// customer as-is, such as order validation failures.
type userFacing interface {
	error
	UserFacing() bool
}

func failureReason(err error) string {
	var uf userFacing
	if errors.As(err, &uf) && uf.UserFacing() {
		return uf.Error()
	}
	return genericFailure
}
