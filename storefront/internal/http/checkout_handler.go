package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/checkout"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/clients"
)

type CheckoutHandler struct {
	svc checkout.CheckoutService
	log *slog.Logger
}

func NewCheckoutHandler(svc checkout.CheckoutService, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, log: log}
}

type PlaceOrderRequestDTO struct {
	SpecialInstructions string `json:"special_instructions"`
}

type PlaceOrderResponseDTO struct {
	checkout.Result
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// POST /api/v1/checkout
// The service applies its own per-order timeout, so the request context is
// passed through unchanged.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id, _ := identity(r)
	result, err := h.svc.PlaceOrder(r.Context(), id, req.SpecialInstructions)
	if err == nil {
		respondJSON(w, http.StatusCreated, PlaceOrderResponseDTO{Result: result})
		return
	}

	status, code, message := checkoutFailure(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "checkout failed", "user_id", id.UserID, "error", err)
	}
	respondJSON(w, status, PlaceOrderResponseDTO{Result: result, Error: message, Code: code})
}

func checkoutFailure(err error) (int, string, string) {
	var apiErr *clients.APIError
	switch {
	case errors.Is(err, checkout.ErrNotSignedIn):
		return http.StatusUnauthorized, "not_signed_in", err.Error()
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, "empty_cart", err.Error()
	case errors.As(err, &apiErr) && apiErr.UserFacing():
		code := apiErr.Code
		if code == "" {
			code = "order_rejected"
		}
		return apiErr.Status, code, apiErr.Message
	case errors.Is(err, clients.ErrUnavailable), errors.Is(err, cart.ErrCartUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable", "Unable to place your order. Please try again."
	default:
		return http.StatusBadGateway, "order_failed", "Unable to place your order. Please try again."
	}
}
