package clients

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
)

// OrdersClient talks to the orders service on behalf of the signed-in user.
// The user's token is forwarded so the orders service authorizes on its own.
type OrdersClient struct {
	rest *restClient
}

func NewOrdersClient(baseURL string, timeout time.Duration, log *slog.Logger) *OrdersClient {
	return &OrdersClient{rest: newRestClient("orders", baseURL, timeout, log)}
}

func (c *OrdersClient) CreateOrder(ctx context.Context, id auth.Identity, draft *domain.OrderDraft) (*domain.Order, error) {
	var order domain.Order
	if err := c.rest.do(ctx, http.MethodPost, "/api/v1/orders", id.Token, draft, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the user's orders, newest first. scope is "", "active"
// or "history".
func (c *OrdersClient) ListOrders(ctx context.Context, id auth.Identity, scope string) ([]domain.Order, error) {
	path := "/api/v1/orders"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	orders := []domain.Order{}
	if err := c.rest.do(ctx, http.MethodGet, path, id.Token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *OrdersClient) GetOrder(ctx context.Context, id auth.Identity, orderID string) (*domain.Order, error) {
	var order domain.Order
	if err := c.rest.do(ctx, http.MethodGet, "/api/v1/orders/"+url.PathEscape(orderID), id.Token, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *OrdersClient) CancelOrder(ctx context.Context, id auth.Identity, orderID string) (*domain.Order, error) {
	var order domain.Order
	if err := c.rest.do(ctx, http.MethodPost, "/api/v1/orders/"+url.PathEscape(orderID)+"/cancel", id.Token, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Reorder returns the line items of a past order.
func (c *OrdersClient) Reorder(ctx context.Context, id auth.Identity, orderID string) ([]domain.OrderItem, error) {
	items := []domain.OrderItem{}
	if err := c.rest.do(ctx, http.MethodPost, "/api/v1/orders/"+url.PathEscape(orderID)+"/reorder", id.Token, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
