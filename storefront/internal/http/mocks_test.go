package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cache"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/checkout"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/clients"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/repository"
	"github.com/go-chi/chi/v5"
)

type memRepo struct {
	mu     sync.Mutex
	carts  map[string]*domain.Cart
	getErr error
}

func (m *memRepo) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *memRepo) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.UserID] = c.Clone()
	return nil
}

func (m *memRepo) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.Cart, error) { return nil, cache.ErrCacheMiss }
func (noCache) Set(context.Context, string, *domain.Cart) error   { return nil }
func (noCache) Invalidate(context.Context, string, string) error  { return nil }

type recordingNotifier struct {
	mu      sync.Mutex
	notices []cart.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, n cart.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Title)
	}
	return out
}

// MenuMock implements MenuResolver.
type MenuMock struct {
	Items map[string]*domain.MenuItem
	Err   error
}

func (m *MenuMock) GetMenuItem(_ context.Context, menuItemID string) (*domain.MenuItem, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	item, ok := m.Items[menuItemID]
	if !ok {
		return nil, &clients.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "menu item not found"}
	}
	copied := *item
	return &copied, nil
}

// OrdersMock implements OrdersAPI.
type OrdersMock struct {
	Orders      []domain.Order
	Items       []domain.OrderItem
	Err         error
	GotScope    string
	GotToken    string
	CancelledID string
}

func (m *OrdersMock) ListOrders(_ context.Context, id auth.Identity, scope string) ([]domain.Order, error) {
	m.GotScope = scope
	m.GotToken = id.Token
	return m.Orders, m.Err
}

func (m *OrdersMock) GetOrder(_ context.Context, _ auth.Identity, orderID string) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, o := range m.Orders {
		if o.ID == orderID {
			return &o, nil
		}
	}
	return nil, &clients.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "order not found"}
}

func (m *OrdersMock) CancelOrder(_ context.Context, _ auth.Identity, orderID string) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.CancelledID = orderID
	return &domain.Order{ID: orderID, Status: domain.OrderStatusCancelled}, nil
}

func (m *OrdersMock) Reorder(_ context.Context, _ auth.Identity, _ string) ([]domain.OrderItem, error) {
	return m.Items, m.Err
}

// CheckoutMock implements checkout.CheckoutService.
type CheckoutMock struct {
	Result          checkout.Result
	Err             error
	GotIdentity     auth.Identity
	GotInstructions string
}

func (m *CheckoutMock) PlaceOrder(_ context.Context, id auth.Identity, specialInstructions string) (checkout.Result, error) {
	m.GotIdentity = id
	m.GotInstructions = specialInstructions
	return m.Result, m.Err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(notifier cart.Notifier) *cart.Store {
	return cart.NewStore(&memRepo{carts: map[string]*domain.Cart{}}, noCache{}, notifier, discardLogger())
}

func withUser(r *http.Request, id auth.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
