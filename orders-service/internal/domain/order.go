package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const (
	// EstimatedLeadTime is added to the creation time for EstimatedDeliveryTime.
	EstimatedLeadTime = 30 * time.Minute
	// HistoryLimit caps the finished-orders listing.
	HistoryLimit = 10
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted},
}

func ParseStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Cancellable is true while the kitchen has not finished the order.
func (s OrderStatus) Cancellable() bool {
	return CanTransitionTo(s, OrderStatusCancelled)
}

func (s OrderStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ID           int64     `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	MenuItemID   string    `json:"menu_item_id"`
	Quantity     int       `json:"quantity"`
	UnitPrice    float64   `json:"unit_price"`
	SpecialNotes *string   `json:"special_notes,omitempty"`
}

type Order struct {
	ID                    uuid.UUID   `json:"id"`
	UserID                string      `json:"user_id"`
	SellerID              string      `json:"seller_id"`
	Status                OrderStatus `json:"status"`
	TotalAmount           float64     `json:"total_amount"`
	DeliveryFee           float64     `json:"delivery_fee"`
	SpecialInstructions   *string     `json:"special_instructions,omitempty"`
	IdempotencyKey        *string     `json:"-"`
	EstimatedDeliveryTime time.Time   `json:"estimated_delivery_time"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
	Items                 []OrderItem `json:"items"`
}

// Draft is a seller-scoped order proposal. It is never stored as-is.
type Draft struct {
	SellerID            string      `json:"seller_id"`
	LineItems           []DraftItem `json:"order_items"`
	TotalAmount         float64     `json:"total_amount"`
	DeliveryFee         float64     `json:"delivery_fee"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
	IdempotencyKey      string      `json:"idempotency_key,omitempty"`
}

type DraftItem struct {
	MenuItemID   string  `json:"menu_item_id"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	SpecialNotes string  `json:"special_notes,omitempty"`
}

// Scope selects which of a customer's orders a listing returns.
type Scope string

const (
	ScopeAll     Scope = ""
	ScopeActive  Scope = "active"
	ScopeHistory Scope = "history"
)

// SellerStats backs the seller dashboard.
type SellerStats struct {
	SellerID     string              `json:"seller_id"`
	TotalOrders  int                 `json:"total_orders"`
	ByStatus     map[OrderStatus]int `json:"by_status"`
	Revenue      float64             `json:"revenue"`
	AverageOrder float64             `json:"average_order"`
}
