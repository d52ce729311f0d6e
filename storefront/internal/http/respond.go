package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/clients"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func identity(r *http.Request) (auth.Identity, bool) {
	return auth.FromContext(r.Context())
}

func requireUser(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := identity(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
	}
	return id, ok
}

// handleError converts store and downstream errors to HTTP responses.
func handleError(w http.ResponseWriter, log *slog.Logger, err error) {
	var apiErr *clients.APIError
	switch {
	case errors.Is(err, cart.ErrInvalidItem):
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
	case errors.Is(err, cart.ErrNoUser):
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
	case errors.Is(err, clients.ErrUnavailable), errors.Is(err, cart.ErrCartUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "upstream request timed out")
	case errors.As(err, &apiErr) && apiErr.UserFacing():
		code := apiErr.Code
		if code == "" {
			code = "upstream_error"
		}
		respondError(w, apiErr.Status, code, apiErr.Message)
	default:
		log.Error("request failed", "error", err)
		respondError(w, http.StatusBadGateway, "upstream_error", "upstream service error")
	}
}
