package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/go-chi/chi/v5"
)

type Catalog interface {
	ListCanteens(ctx context.Context) ([]*domain.Canteen, error)
	GetCanteen(ctx context.Context, canteenID string) (*domain.Canteen, error)
	Menu(ctx context.Context, id auth.Identity, canteenID string) ([]*domain.MenuItem, error)
	GetMenuItem(ctx context.Context, menuItemID string) (*domain.MenuItem, error)
	SetCanteenOpen(ctx context.Context, id auth.Identity, canteenID string, open bool) (*domain.Canteen, error)
	CreateMenuItem(ctx context.Context, id auth.Identity, canteenID string, item *domain.MenuItem) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id auth.Identity, menuItemID string, patch domain.MenuItemPatch) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id auth.Identity, menuItemID string) error
}

type CatalogHandler struct {
	catalog Catalog
	timeout time.Duration
	log     *slog.Logger
}

func NewCatalogHandler(catalog Catalog, timeout time.Duration, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
		log:     log,
	}
}

type CreateMenuItemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	IsAvailable *bool   `json:"is_available"`
	ImageURL    string  `json:"image_url"`
}

type UpdateCanteenRequest struct {
	IsOpen *bool `json:"is_open"`
}

// GET /api/v1/canteens
func (h *CatalogHandler) ListCanteens(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	canteens, err := h.catalog.ListCanteens(ctx)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	if canteens == nil {
		canteens = []*domain.Canteen{}
	}
	respondJSON(w, http.StatusOK, canteens)
}

// GET /api/v1/canteens/{canteen_id}
func (h *CatalogHandler) GetCanteen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	canteen, err := h.catalog.GetCanteen(ctx, chi.URLParam(r, "canteen_id"))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, canteen)
}

// PATCH /api/v1/canteens/{canteen_id}
func (h *CatalogHandler) UpdateCanteen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateCanteenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsOpen == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "is_open is required")
		return
	}

	id, _ := auth.FromContext(ctx)
	canteen, err := h.catalog.SetCanteenOpen(ctx, id, chi.URLParam(r, "canteen_id"), *req.IsOpen)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, canteen)
}

// GET /api/v1/canteens/{canteen_id}/menu
func (h *CatalogHandler) Menu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, _ := auth.FromContext(ctx)
	items, err := h.catalog.Menu(ctx, id, chi.URLParam(r, "canteen_id"))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	if items == nil {
		items = []*domain.MenuItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

// POST /api/v1/canteens/{canteen_id}/menu
func (h *CatalogHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	item := &domain.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
		ImageURL:    req.ImageURL,
	}

	id, _ := auth.FromContext(ctx)
	created, err := h.catalog.CreateMenuItem(ctx, id, chi.URLParam(r, "canteen_id"), item)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// GET /api/v1/menu-items/{menu_item_id}
func (h *CatalogHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	item, err := h.catalog.GetMenuItem(ctx, chi.URLParam(r, "menu_item_id"))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// PUT /api/v1/menu-items/{menu_item_id}
// Omitted fields keep their current value.
func (h *CatalogHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var patch domain.MenuItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id, _ := auth.FromContext(ctx)
	item, err := h.catalog.UpdateMenuItem(ctx, id, chi.URLParam(r, "menu_item_id"), patch)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DELETE /api/v1/menu-items/{menu_item_id}
func (h *CatalogHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, _ := auth.FromContext(ctx)
	if err := h.catalog.DeleteMenuItem(ctx, id, chi.URLParam(r, "menu_item_id")); err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
