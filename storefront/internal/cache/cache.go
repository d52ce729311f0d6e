package cache

import (
	"context"
	"errors"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
)

// CartCache is a read-through copy of persisted carts. Writers invalidate
// with the revision they just persisted; a fill carrying any other revision
// is dropped until that marker expires.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Invalidate(ctx context.Context, userID, revision string) error
}

var ErrCacheMiss = errors.New("cache miss")
