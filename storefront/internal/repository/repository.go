package repository

import (
	"context"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
)

// CartRepository is the durable copy of a user's cart. It is a convenience
// store, not the system of record: callers tolerate its loss.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID string) error
}
