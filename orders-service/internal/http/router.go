package http

import (
	"net/http"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(h *OrdersHandler, verifier *auth.Verifier, m *metrics.ServerMetrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{order_id}", h.GetOrder)
		r.Get("/orders/{order_id}/items", h.GetOrderItems)
		r.Post("/orders/{order_id}/cancel", h.CancelOrder)
		r.Post("/orders/{order_id}/reorder", h.Reorder)
		r.Patch("/orders/{order_id}/status", h.UpdateStatus)

		r.Get("/sellers/{seller_id}/orders", h.ListSellerOrders)
		r.Get("/sellers/{seller_id}/stats", h.SellerStats)
	})

	return otelhttp.NewHandler(r, "orders-service")
}
