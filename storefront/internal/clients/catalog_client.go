package clients

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
)

// CatalogClient resolves menu items so the cart never trusts a client-sent
// name or price.
type CatalogClient struct {
	rest *restClient
}

func NewCatalogClient(baseURL string, timeout time.Duration, log *slog.Logger) *CatalogClient {
	return &CatalogClient{rest: newRestClient("catalog", baseURL, timeout, log)}
}

func (c *CatalogClient) GetMenuItem(ctx context.Context, menuItemID string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := c.rest.do(ctx, http.MethodGet, "/api/v1/menu-items/"+url.PathEscape(menuItemID), "", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
