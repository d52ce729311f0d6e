package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/clients"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxQuantity = 99

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, item cart.NewItem) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type MenuResolver interface {
	GetMenuItem(ctx context.Context, menuItemID string) (*domain.MenuItem, error)
}

type CartHandler struct {
	store   CartStore
	menu    MenuResolver
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(store CartStore, menu MenuResolver, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		store:   store,
		menu:    menu,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponseDTO struct {
	Items       []domain.CartLineItem `json:"items"`
	TotalAmount float64               `json:"total_amount"`
	ItemCount   int                   `json:"item_count"`
	Revision    string                `json:"revision"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func toCartResponse(c *domain.Cart) CartResponseDTO {
	items := c.Items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return CartResponseDTO{
		Items:       items,
		TotalAmount: c.TotalAmount(),
		ItemCount:   c.ItemCount(),
		Revision:    c.Revision,
		UpdatedAt:   c.UpdatedAt,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.store.GetCart(ctx, id.UserID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.MenuItemID = strings.TrimSpace(req.MenuItemID)
	if req.MenuItemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu_item_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	item, err := h.menu.GetMenuItem(ctx, req.MenuItemID)
	if err != nil {
		if clients.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "menu_item_not_found", "menu item not found")
			return
		}
		handleError(w, h.log, err)
		return
	}
	if !item.IsAvailable {
		respondError(w, http.StatusConflict, "item_unavailable", "This item is currently unavailable")
		return
	}
	if !item.CanteenOpen {
		respondError(w, http.StatusConflict, "canteen_closed", item.CanteenName+" is currently closed")
		return
	}

	c, err := h.store.AddItem(ctx, id.UserID, cart.NewItem{
		MenuItemID: item.ID,
		Name:       item.Name,
		UnitPrice:  item.Price,
		Quantity:   req.Quantity,
		SellerID:   item.CanteenID,
		SellerName: item.CanteenName,
	})
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCartResponse(c))
}

// PUT /api/v1/cart/items/{item_id}
// A quantity of zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "missing_item_id", "item_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}
	if *req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	c, err := h.store.UpdateQuantity(ctx, id.UserID, itemID, *req.Quantity)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "missing_item_id", "item_id is required")
		return
	}

	c, err := h.store.RemoveItem(ctx, id.UserID, itemID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(c))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.store.ClearCart(ctx, id.UserID); err != nil {
		handleError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
