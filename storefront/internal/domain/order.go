package domain

import "time"

// The storefront sees orders only through the orders service API; these
// mirror its JSON.

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	ID           int64   `json:"id"`
	OrderID      string  `json:"order_id"`
	MenuItemID   string  `json:"menu_item_id"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	SpecialNotes *string `json:"special_notes,omitempty"`
}

type Order struct {
	ID                    string      `json:"id"`
	UserID                string      `json:"user_id"`
	SellerID              string      `json:"seller_id"`
	Status                OrderStatus `json:"status"`
	TotalAmount           float64     `json:"total_amount"`
	DeliveryFee           float64     `json:"delivery_fee"`
	SpecialInstructions   *string     `json:"special_instructions,omitempty"`
	EstimatedDeliveryTime time.Time   `json:"estimated_delivery_time"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
	Items                 []OrderItem `json:"items"`
}

// OrderDraft is one seller's share of a checkout, built from the cart and
// sent to the orders service.
type OrderDraft struct {
	SellerID            string      `json:"seller_id"`
	LineItems           []DraftItem `json:"order_items"`
	Subtotal            float64     `json:"-"`
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

// MenuItem is the catalog's view of something a customer can add to the cart.
type MenuItem struct {
	ID          string  `json:"id"`
	CanteenID   string  `json:"canteen_id"`
	CanteenName string  `json:"canteen_name"`
	CanteenOpen bool    `json:"canteen_is_open"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	IsAvailable bool    `json:"is_available"`
}

// Orderable reports whether the item can go into a cart right now.
func (m *MenuItem) Orderable() bool {
	return m.IsAvailable && m.CanteenOpen
}
