package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLineItem is one menu item the user intends to buy. Quantity is always
// at least 1 while the item is in a cart.
type CartLineItem struct {
	ID         string    `json:"id" bson:"id"`
	MenuItemID string    `json:"menu_item_id" bson:"menu_item_id"`
	Name       string    `json:"name" bson:"name"`
	UnitPrice  float64   `json:"unit_price" bson:"unit_price"`
	Quantity   int       `json:"quantity" bson:"quantity"`
	SellerID   string    `json:"seller_id" bson:"seller_id"`
	SellerName string    `json:"seller_name" bson:"seller_name"`
	AddedAt    time.Time `json:"added_at" bson:"added_at"`
}

// LineTotal is UnitPrice × Quantity.
func (i CartLineItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(i.UnitPrice).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart holds a user's pending selections in insertion order. Revision changes
// on every mutation.
type Cart struct {
	ID        string         `json:"-" bson:"_id,omitempty"`
	UserID    string         `json:"user_id" bson:"user_id"`
	Items     []CartLineItem `json:"items" bson:"items"`
	Revision  string         `json:"revision" bson:"revision"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

func (c *Cart) TotalAmount() float64 {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	f, _ := total.Float64()
	return f
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// IndexOf returns the position of the item with the given id, or -1.
func (c *Cart) IndexOf(itemID string) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// IndexOfMenuItem returns the position of the line for menuItemID, or -1.
func (c *Cart) IndexOfMenuItem(menuItemID string) int {
	for i, item := range c.Items {
		if item.MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to hand out of the store.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartLineItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}
