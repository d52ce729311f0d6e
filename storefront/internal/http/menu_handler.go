package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/clients"
	"github.com/go-chi/chi/v5"
)

// MenuHandler lets clients check a menu item before adding it to the cart.
type MenuHandler struct {
	menu    MenuResolver
	timeout time.Duration
	log     *slog.Logger
}

func NewMenuHandler(menu MenuResolver, timeout time.Duration, log *slog.Logger) *MenuHandler {
	return &MenuHandler{
		menu:    menu,
		timeout: timeout,
		log:     log,
	}
}

// GET /api/v1/menu-items/{menu_item_id}
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	item, err := h.menu.GetMenuItem(ctx, chi.URLParam(r, "menu_item_id"))
	if err != nil {
		if clients.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "menu_item_not_found", "menu item not found")
			return
		}
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}
