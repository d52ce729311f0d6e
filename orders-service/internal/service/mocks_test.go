package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/domain"
	r "github.com/gauravniet133/insta-canteen-connect/orders-service/internal/repository"
	"github.com/google/uuid"
)

// MockRepository implements r.OrderRepository for testing
type MockRepository struct {
	Orders          map[uuid.UUID]*domain.Order
	CreateErr       error
	CreateCalls     int
	CreatedOrder    *domain.Order // Captures the order passed to CreateOrder
	ByKey           *domain.Order
	ByKeyErr        error
	TransitionCalls int
	ListScope       domain.Scope
	ListStatus      *domain.OrderStatus
	Stats           *domain.SellerStats
}

func newMockRepository(orders ...*domain.Order) *MockRepository {
	m := &MockRepository{Orders: map[uuid.UUID]*domain.Order{}}
	for _, o := range orders {
		m.Orders[o.ID] = o
	}
	return m
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) RunMigrations(*r.Credentials) error {
	return nil
}

func (m *MockRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.CreateCalls++
	m.CreatedOrder = order
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Orders[order.ID] = order
	return nil
}

func (m *MockRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.Orders[id]
	if !ok {
		return nil, r.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockRepository) GetOrderByIdempotencyKey(_ context.Context, _, _ string) (*domain.Order, error) {
	return m.ByKey, m.ByKeyErr
}

func (m *MockRepository) ListOrdersByUserID(_ context.Context, userID string, scope domain.Scope) ([]*domain.Order, error) {
	m.ListScope = scope
	var out []*domain.Order
	for _, o := range m.Orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockRepository) ListOrdersBySellerID(_ context.Context, sellerID string, status *domain.OrderStatus) ([]*domain.Order, error) {
	m.ListStatus = status
	var out []*domain.Order
	for _, o := range m.Orders {
		if o.SellerID == sellerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockRepository) TransitionStatus(_ context.Context, id uuid.UUID, to domain.OrderStatus, guard r.GuardFunc) (*domain.Order, domain.OrderStatus, error) {
	m.TransitionCalls++
	o, ok := m.Orders[id]
	if !ok {
		return nil, "", r.ErrOrderNotFound
	}
	if guard != nil {
		if err := guard(o); err != nil {
			return nil, "", err
		}
	}
	from := o.Status
	o.Status = to
	return o, from, nil
}

func (m *MockRepository) SellerStats(_ context.Context, sellerID string) (*domain.SellerStats, error) {
	if m.Stats != nil {
		return m.Stats, nil
	}
	return &domain.SellerStats{SellerID: sellerID, ByStatus: map[domain.OrderStatus]int{}}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
