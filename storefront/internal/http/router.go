package http

import (
	"net/http"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Menu     *MenuHandler
	Stream   *StreamHandler
}

func NewRouter(h Handlers, verifier *auth.Verifier, m *metrics.ServerMetrics, maxBodySize int64) http.Handler {
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

		// Long-lived; kept outside the body limit.
		r.Get("/orders/stream", h.Stream.Stream)

		r.Group(func(r chi.Router) {
			r.Use(LimitBody(maxBodySize))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{item_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{item_id}", h.Cart.RemoveItem)
			})

			r.Post("/checkout", h.Checkout.PlaceOrder)

			r.Get("/orders", h.Orders.ListOrders)
			r.Get("/orders/{order_id}", h.Orders.GetOrder)
			r.Post("/orders/{order_id}/cancel", h.Orders.CancelOrder)
			r.Post("/orders/{order_id}/reorder", h.Orders.Reorder)

			r.Get("/menu-items/{menu_item_id}", h.Menu.Get)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
