package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/orders-service/internal/service"
	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrdersHandler struct {
	svc     service.OrderService
	timeout time.Duration
	log     *slog.Logger
}

func NewOrdersHandler(svc service.OrderService, timeout time.Duration, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		svc:     svc,
		timeout: timeout,
		log:     log,
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// POST /api/v1/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id, _ := auth.FromContext(r.Context())
	order, created, err := h.svc.CreateOrder(ctx, id, &draft)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	respondJSON(w, status, order)
}

// GET /api/v1/orders?scope=active|history
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	scope := domain.Scope(r.URL.Query().Get("scope"))
	switch scope {
	case domain.ScopeAll, domain.ScopeActive, domain.ScopeHistory:
	default:
		respondError(w, http.StatusBadRequest, "invalid_scope", "scope must be active or history")
		return
	}

	id, _ := auth.FromContext(r.Context())
	orders, err := h.svc.ListUserOrders(ctx, id, scope)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	id, _ := auth.FromContext(r.Context())
	order, err := h.svc.GetOrder(ctx, id, orderID)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/orders/{order_id}/items
func (h *OrdersHandler) GetOrderItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	id, _ := auth.FromContext(r.Context())
	order, err := h.svc.GetOrder(ctx, id, orderID)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order.Items)
}

// POST /api/v1/orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	id, _ := auth.FromContext(r.Context())
	order, err := h.svc.CancelOrder(ctx, id, orderID)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/{order_id}/reorder
func (h *OrdersHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	id, _ := auth.FromContext(r.Context())
	items, err := h.svc.Reorder(ctx, id, orderID)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// PATCH /api/v1/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	status, valid := domain.ParseStatus(req.Status)
	if !valid {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}

	id, _ := auth.FromContext(r.Context())
	order, err := h.svc.UpdateStatus(ctx, id, orderID, status)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/v1/sellers/{seller_id}/orders?status=
func (h *OrdersHandler) ListSellerOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, valid := domain.ParseStatus(raw)
		if !valid {
			respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
			return
		}
		status = &s
	}

	id, _ := auth.FromContext(r.Context())
	orders, err := h.svc.ListSellerOrders(ctx, id, chi.URLParam(r, "seller_id"), status)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/sellers/{seller_id}/stats
func (h *OrdersHandler) SellerStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, _ := auth.FromContext(r.Context())
	stats, err := h.svc.SellerStats(ctx, id, chi.URLParam(r, "seller_id"))
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "order_id")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return uuid.Nil, false
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return uuid.Nil, false
	}
	return orderID, true
}
