package http

import (
	"net/http"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(h *CatalogHandler, verifier *auth.Verifier, m *metrics.ServerMetrics) http.Handler {
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

		r.Get("/canteens", h.ListCanteens)
		r.Get("/canteens/{canteen_id}", h.GetCanteen)
		r.Patch("/canteens/{canteen_id}", h.UpdateCanteen)
		r.Get("/canteens/{canteen_id}/menu", h.Menu)
		r.Post("/canteens/{canteen_id}/menu", h.CreateMenuItem)

		r.Get("/menu-items/{menu_item_id}", h.GetMenuItem)
		r.Put("/menu-items/{menu_item_id}", h.UpdateMenuItem)
		r.Delete("/menu-items/{menu_item_id}", h.DeleteMenuItem)
	})

	return otelhttp.NewHandler(r, "catalog-service")
}
