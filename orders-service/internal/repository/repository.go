package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order with this idempotency key already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// GuardFunc inspects the locked row before a status change and returns an
// error to abort it.
type GuardFunc func(current *domain.Order) error

type OrderRepository interface {
	// CreateOrder stores the header, its items and an order.created outbox
	// event in one transaction.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string, scope domain.Scope) ([]*domain.Order, error)
	ListOrdersBySellerID(ctx context.Context, sellerID string, status *domain.OrderStatus) ([]*domain.Order, error)
	// TransitionStatus locks the row, runs guard, writes the new status and
	// an order.status_changed outbox event. It returns the updated order and
	// the status it had before.
	TransitionStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus, guard GuardFunc) (*domain.Order, domain.OrderStatus, error)
	SellerStats(ctx context.Context, sellerID string) (*domain.SellerStats, error)
	RunMigrations(*Credentials) error
	Close() error
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
