package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/domain"
	r "github.com/gauravniet133/insta-canteen-connect/orders-service/internal/repository"
	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/google/uuid"
)

type OrderService interface {
	CreateOrder(ctx context.Context, id auth.Identity, draft *domain.Draft) (*domain.Order, bool, error)
	GetOrder(ctx context.Context, id auth.Identity, orderID uuid.UUID) (*domain.Order, error)
	ListUserOrders(ctx context.Context, id auth.Identity, scope domain.Scope) ([]*domain.Order, error)
	ListSellerOrders(ctx context.Context, id auth.Identity, sellerID string, status *domain.OrderStatus) ([]*domain.Order, error)
	CancelOrder(ctx context.Context, id auth.Identity, orderID uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id auth.Identity, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	SellerStats(ctx context.Context, id auth.Identity, sellerID string) (*domain.SellerStats, error)
	Reorder(ctx context.Context, id auth.Identity, orderID uuid.UUID) ([]domain.OrderItem, error)
}

type OrderServiceImpl struct {
	repo r.OrderRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewOrderService(repo r.OrderRepository, log *slog.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{repo: repo, log: log, now: time.Now}
}

// CreateOrder records one seller-scoped order. The bool is false when the
// idempotency key matched an order created earlier, which is returned instead.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, id auth.Identity, draft *domain.Draft) (*domain.Order, bool, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, false, err
	}
	if id.UserID == "" {
		return nil, false, ErrUnauthenticated
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:                    uuid.New(),
		UserID:                id.UserID,
		SellerID:              draft.SellerID,
		Status:                domain.OrderStatusPending,
		TotalAmount:           draft.TotalAmount,
		DeliveryFee:           draft.DeliveryFee,
		SpecialInstructions:   trimmedOrNil(draft.SpecialInstructions),
		IdempotencyKey:        trimmedOrNil(draft.IdempotencyKey),
		EstimatedDeliveryTime: now.Add(domain.EstimatedLeadTime),
		CreatedAt:             now,
		UpdatedAt:             now,
		Items:                 make([]domain.OrderItem, 0, len(draft.LineItems)),
	}
	for _, li := range draft.LineItems {
		order.Items = append(order.Items, domain.OrderItem{
			MenuItemID:   li.MenuItemID,
			Quantity:     li.Quantity,
			UnitPrice:    li.UnitPrice,
			SpecialNotes: trimmedOrNil(li.SpecialNotes),
		})
	}

	err := s.repo.CreateOrder(ctx, order)
	if errors.Is(err, r.ErrDuplicateOrder) && order.IdempotencyKey != nil {
		existing, getErr := s.repo.GetOrderByIdempotencyKey(ctx, id.UserID, *order.IdempotencyKey)
		if getErr != nil {
			return nil, false, fmt.Errorf("failed to load existing order: %w", getErr)
		}
		s.log.InfoContext(ctx, "duplicate order request",
			"idempotency_key", *order.IdempotencyKey, "order_id", existing.ID)
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	s.log.InfoContext(ctx, "order created",
		"order_id", order.ID, "user_id", order.UserID, "seller_id", order.SellerID, "total", order.TotalAmount)
	return order, true, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, id auth.Identity, orderID uuid.UUID) (*domain.Order, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(id, order) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderServiceImpl) ListUserOrders(ctx context.Context, id auth.Identity, scope domain.Scope) ([]*domain.Order, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListOrdersByUserID(ctx, id.UserID, scope)
}

func (s *OrderServiceImpl) ListSellerOrders(ctx context.Context, id auth.Identity, sellerID string, status *domain.OrderStatus) ([]*domain.Order, error) {
	if err := requireSeller(id, sellerID); err != nil {
		return nil, err
	}
	return s.repo.ListOrdersBySellerID(ctx, sellerID, status)
}

func (s *OrderServiceImpl) SellerStats(ctx context.Context, id auth.Identity, sellerID string) (*domain.SellerStats, error) {
	if err := requireSeller(id, sellerID); err != nil {
		return nil, err
	}
	return s.repo.SellerStats(ctx, sellerID)
}

// CancelOrder lets the customer who placed the order withdraw it before it is ready.
func (s *OrderServiceImpl) CancelOrder(ctx context.Context, id auth.Identity, orderID uuid.UUID) (*domain.Order, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	order, from, err := s.repo.TransitionStatus(ctx, orderID, domain.OrderStatusCancelled, func(cur *domain.Order) error {
		if cur.UserID != id.UserID {
			return ErrForbidden
		}
		if !cur.Status.Cancellable() {
			return ErrNotCancellable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order cancelled", "order_id", orderID, "from", from)
	return order, nil
}

// UpdateStatus moves an order through the kitchen workflow. Only the seller
// that owns the order may do this.
func (s *OrderServiceImpl) UpdateStatus(ctx context.Context, id auth.Identity, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if !id.IsSeller() {
		return nil, ErrForbidden
	}
	order, from, err := s.repo.TransitionStatus(ctx, orderID, status, func(cur *domain.Order) error {
		if cur.SellerID != id.SellerID {
			return ErrForbidden
		}
		if !domain.CanTransitionTo(cur.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, cur.Status, status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order status updated", "order_id", orderID, "from", from, "to", status)
	return order, nil
}

// Reorder returns the line items of a past order so they can be put back in the cart.
func (s *OrderServiceImpl) Reorder(ctx context.Context, id auth.Identity, orderID uuid.UUID) ([]domain.OrderItem, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != id.UserID {
		return nil, ErrForbidden
	}
	return order.Items, nil
}

func canView(id auth.Identity, order *domain.Order) bool {
	if order.UserID == id.UserID {
		return true
	}
	return id.IsSeller() && id.SellerID == order.SellerID
}

func requireSeller(id auth.Identity, sellerID string) error {
	if id.UserID == "" {
		return ErrUnauthenticated
	}
	if !id.IsSeller() || id.SellerID != sellerID {
		return ErrForbidden
	}
	return nil
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
