package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/repository"
	"github.com/gauravniet133/insta-canteen-connect/catalog-service/internal/service"
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

// handleServiceError converts service and repository errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondError(w, http.StatusBadRequest, "validation_failed", vErr.Message)
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, repository.ErrCanteenNotFound), errors.Is(err, repository.ErrMenuItemNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
