package service

import (
	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	msgSellerRequired = "Canteen ID is required"
	msgNoItems        = "Order must contain at least one item"
	msgInvalidTotal   = "Invalid total amount"
	msgInvalidItem    = "Invalid order item data"
)

// Amounts are stored as NUMERIC(12, 2).
var maxAmount = decimal.RequireFromString("9999999999.99")

// ValidateDraft rounds the draft's money fields to cents, then checks it in
// the order the rules are listed to the customer and returns the first
// violation.
func ValidateDraft(draft *domain.Draft) error {
	if draft == nil || draft.SellerID == "" {
		return invalid(msgSellerRequired)
	}
	if len(draft.LineItems) == 0 {
		return invalid(msgNoItems)
	}

	total := toCents(draft.TotalAmount)
	if !total.IsPositive() || total.GreaterThan(maxAmount) {
		return invalid(msgInvalidTotal)
	}
	draft.TotalAmount = total.InexactFloat64()
	draft.DeliveryFee = toCents(draft.DeliveryFee).InexactFloat64()

	for i, item := range draft.LineItems {
		price := toCents(item.UnitPrice)
		if item.MenuItemID == "" || item.Quantity <= 0 || price.IsNegative() || price.GreaterThan(maxAmount) {
			return invalid(msgInvalidItem)
		}
		draft.LineItems[i].UnitPrice = price.InexactFloat64()
	}
	return nil
}

func toCents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
