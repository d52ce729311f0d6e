package checkout

import (
	"strings"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// DeliveryFee is charged once per seller in a checkout.
const DeliveryFee = 5.0

// SellerGroup is the part of a cart that becomes one order.
type SellerGroup struct {
	SellerID   string
	SellerName string
	Items      []domain.CartLineItem
}

// Partition groups items by seller. Groups come out in the order their
// seller first appears; items keep their cart order inside a group.
func Partition(items []domain.CartLineItem) []SellerGroup {
	index := make(map[string]int)
	var groups []SellerGroup
	for _, it := range items {
		i, ok := index[it.SellerID]
		if !ok {
			i = len(groups)
			index[it.SellerID] = i
			groups = append(groups, SellerGroup{SellerID: it.SellerID, SellerName: it.SellerName})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

func (g SellerGroup) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range g.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Draft builds the order request for the group. The idempotency key ties it
// to the cart revision, so retrying an unchanged cart resubmits the same keys.
func (g SellerGroup) Draft(revision, specialInstructions string) domain.OrderDraft {
	subtotal := g.Subtotal()
	fee := decimal.NewFromFloat(DeliveryFee)

	items := make([]domain.DraftItem, 0, len(g.Items))
	for _, it := range g.Items {
		items = append(items, domain.DraftItem{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
		})
	}

	return domain.OrderDraft{
		SellerID:            g.SellerID,
		LineItems:           items,
		Subtotal:            subtotal.InexactFloat64(),
		TotalAmount:         subtotal.Add(fee).InexactFloat64(),
		DeliveryFee:         DeliveryFee,
		SpecialInstructions: strings.TrimSpace(specialInstructions),
		IdempotencyKey:      revision + ":" + g.SellerID,
	}
}
