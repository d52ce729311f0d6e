package events

import "time"

// TopicOrderEvents carries every order row change published from the
// orders-service outbox.
const TopicOrderEvents = "order-events"

type EventType string

const (
	OrderCreated       EventType = "order.created"
	OrderStatusChanged EventType = "order.status_changed"
)

// OrderEvent is the change notification for one order row. OldStatus is empty
// for OrderCreated.
type OrderEvent struct {
	Type        EventType `json:"type"`
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	SellerID    string    `json:"seller_id"`
	Status      string    `json:"status"`
	OldStatus   string    `json:"old_status,omitempty"`
	TotalAmount float64   `json:"total_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// StatusMessage is the customer-facing text for a status change.
func StatusMessage(status string) string {
	switch status {
	case "confirmed":
		return "Your order has been confirmed!"
	case "preparing":
		return "Your order is being prepared"
	case "ready":
		return "Your order is ready for pickup/delivery!"
	case "completed":
		return "Your order has been completed"
	case "cancelled":
		return "Your order has been cancelled"
	default:
		return "Order status: " + status
	}
}
