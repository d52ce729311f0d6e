package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrdersAPI interface {
	ListOrders(ctx context.Context, id auth.Identity, scope string) ([]domain.Order, error)
	GetOrder(ctx context.Context, id auth.Identity, orderID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, id auth.Identity, orderID string) (*domain.Order, error)
	Reorder(ctx context.Context, id auth.Identity, orderID string) ([]domain.OrderItem, error)
}

type OrdersHandler struct {
	orders   OrdersAPI
	store    CartStore
	menu     MenuResolver
	notifier cart.Notifier
	timeout  time.Duration
	log      *slog.Logger
}

func NewOrdersHandler(orders OrdersAPI, store CartStore, menu MenuResolver, notifier cart.Notifier, timeout time.Duration, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:   orders,
		store:    store,
		menu:     menu,
		notifier: notifier,
		timeout:  timeout,
		log:      log,
	}
}

type ReorderResponseDTO struct {
	Cart    CartResponseDTO `json:"cart"`
	Added   int             `json:"added"`
	Skipped []string        `json:"skipped,omitempty"`
}

// GET /api/v1/orders?scope=active|history
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	scope := r.URL.Query().Get("scope")
	switch scope {
	case "", "active", "history":
	default:
		respondError(w, http.StatusBadRequest, "invalid_scope", "scope must be active or history")
		return
	}

	orders, err := h.orders.ListOrders(ctx, id, scope)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, id, orderID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.CancelOrder(ctx, id, orderID)
	if err != nil {
		h.notifier.Notify(ctx, id.UserID, cart.Notice{
			Title:       "Error",
			Description: "Unable to cancel the order",
			Variant:     cart.VariantDestructive,
		})
		handleError(w, h.log, err)
		return
	}

	h.notifier.Notify(ctx, id.UserID, cart.Notice{
		Title:       "Order Cancelled",
		Description: "Your order has been successfully cancelled",
		Variant:     cart.VariantDefault,
	})
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{order_id}/reorder
// Puts the items of a past order back into the cart at today's prices.
// Items no longer on the menu are skipped.
func (h *OrdersHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	items, err := h.orders.Reorder(ctx, id, orderID)
	if err != nil {
		h.notifier.Notify(ctx, id.UserID, cart.Notice{
			Title:       "Error",
			Description: "Unable to reorder items",
			Variant:     cart.VariantDestructive,
		})
		handleError(w, h.log, err)
		return
	}

	resp := ReorderResponseDTO{}
	var last *domain.Cart
	for _, it := range items {
		menuItem, err := h.menu.GetMenuItem(ctx, it.MenuItemID)
		if err != nil || !menuItem.Orderable() {
			if err != nil {
				h.log.WarnContext(ctx, "reorder item lookup failed", "menu_item_id", it.MenuItemID, "error", err)
			}
			resp.Skipped = append(resp.Skipped, it.MenuItemID)
			continue
		}
		c, err := h.store.AddItem(ctx, id.UserID, cart.NewItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			UnitPrice:  menuItem.Price,
			Quantity:   it.Quantity,
			SellerID:   menuItem.CanteenID,
			SellerName: menuItem.CanteenName,
		})
		if err != nil {
			resp.Skipped = append(resp.Skipped, it.MenuItemID)
			continue
		}
		last = c
		resp.Added++
	}

	if last == nil {
		if last, err = h.store.GetCart(ctx, id.UserID); err != nil {
			handleError(w, h.log, err)
			return
		}
	}
	resp.Cart = toCartResponse(last)

	if resp.Added > 0 {
		h.notifier.Notify(ctx, id.UserID, cart.Notice{
			Title:       "Reorder Initiated",
			Description: "Items have been added to your cart",
			Variant:     cart.VariantDefault,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
