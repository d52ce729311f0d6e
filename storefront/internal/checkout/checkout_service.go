package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
)

// PlaceOrder turns the user's cart into one order per seller. Orders are
// submitted one at a time and the first failure stops the rest. The cart is
// cleared only when every order was created.
func (s *CheckoutServiceImpl) PlaceOrder(ctx context.Context, id auth.Identity, specialInstructions string) (Result, error) {
	if id.UserID == "" {
		return Result{}, ErrNotSignedIn
	}

	var result Result
	err := s.carts.WithCart(ctx, id.UserID, func(snapshot *domain.Cart) (bool, error) {
		if snapshot.IsEmpty() {
			return false, ErrEmptyCart
		}

		groups := Partition(snapshot.Items)
		orderIDs := make([]string, 0, len(groups))
		for _, g := range groups {
			draft := g.Draft(snapshot.Revision, specialInstructions)
			order, err := s.submit(ctx, id, &draft)
			if err != nil {
				s.log.WarnContext(ctx, "order creation failed",
					"user_id", id.UserID,
					"seller_id", g.SellerID,
					"created", len(orderIDs),
					"sellers", len(groups),
					"error", err)
				return false, err
			}
			orderIDs = append(orderIDs, order.ID)
		}

		result = Result{Success: true, OrderID: orderIDs[0], OrderIDs: orderIDs}
		return true, nil
	})

	switch {
	case errors.Is(err, ErrEmptyCart):
		s.notifier.Notify(ctx, id.UserID, cart.Notice{
			Title:       "Cart is empty",
			Description: ErrEmptyCart.Error(),
			Variant:     cart.VariantDestructive,
		})
		return Result{}, err
	case err != nil:
		s.notifier.Notify(ctx, id.UserID, cart.Notice{
			Title:       "Order Failed",
			Description: failureReason(err),
			Variant:     cart.VariantDestructive,
		})
		return Result{}, err
	}

	s.log.InfoContext(ctx, "checkout completed", "user_id", id.UserID, "orders", len(result.OrderIDs))
	s.notifier.Notify(ctx, id.UserID, cart.Notice{
		Title:       "Order Placed Successfully!",
		Description: successDescription(len(result.OrderIDs)),
		Variant:     cart.VariantDefault,
	})
	return result, nil
}

func (s *CheckoutServiceImpl) submit(ctx context.Context, id auth.Identity, draft *domain.OrderDraft) (*domain.Order, error) {
	orderCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.orders.CreateOrder(orderCtx, id, draft)
	if err != nil {
		return nil, fmt.Errorf("create order for seller %s: %w", draft.SellerID, err)
	}
	return order, nil
}

func successDescription(n int) string {
	if n > 1 {
		return "Orders have been placed and are being processed"
	}
	return "Order has been placed and is being processed"
}
