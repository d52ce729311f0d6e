package checkout

import (
	"context"
	"log/slog"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
)

// OrderGateway records one seller-scoped order.
type OrderGateway interface {
	CreateOrder(ctx context.Context, id auth.Identity, draft *domain.OrderDraft) (*domain.Order, error)
}

// CartLocker runs fn with the user's cart locked. Returning true from fn
// clears the cart before the lock is released.
type CartLocker interface {
	WithCart(ctx context.Context, userID string, fn func(snapshot *domain.Cart) (bool, error)) error
}

type Result struct {
	Success  bool     `json:"success"`
	OrderID  string   `json:"order_id,omitempty"`
	OrderIDs []string `json:"order_ids,omitempty"`
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, id auth.Identity, specialInstructions string) (Result, error)
}

type CheckoutServiceImpl struct {
	carts    CartLocker
	orders   OrderGateway
	notifier cart.Notifier
	timeout  time.Duration
	log      *slog.Logger
}

func NewCheckoutService(carts CartLocker, orders OrderGateway, notifier cart.Notifier, timeout time.Duration, log *slog.Logger) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		timeout:  timeout,
		log:      log,
	}
}
