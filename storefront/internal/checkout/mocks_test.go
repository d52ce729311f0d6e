package checkout

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/auth"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cache"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/repository"
	"github.com/google/uuid"
)

// MockGateway implements OrderGateway and records every draft it receives.
type MockGateway struct {
	mu     sync.Mutex
	Drafts []domain.OrderDraft
	Tokens []string
	// FailOn makes CreateOrder fail for this seller.
	FailOn  string
	FailErr error
}

func (m *MockGateway) CreateOrder(_ context.Context, id auth.Identity, draft *domain.OrderDraft) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Drafts = append(m.Drafts, *draft)
	m.Tokens = append(m.Tokens, id.Token)
	if draft.SellerID == m.FailOn {
		return nil, m.FailErr
	}
	return &domain.Order{
		ID:          uuid.NewString(),
		UserID:      id.UserID,
		SellerID:    draft.SellerID,
		Status:      domain.OrderStatusPending,
		TotalAmount: draft.TotalAmount,
		DeliveryFee: draft.DeliveryFee,
	}, nil
}

// MockRepository implements repository.CartRepository in memory.
type MockRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func (m *MockRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *MockRepository) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.UserID] = c.Clone()
	return nil
}

func (m *MockRepository) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[userID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

func (m *MockRepository) has(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.carts[userID]
	return ok
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.Cart, error) { return nil, cache.ErrCacheMiss }
func (noCache) Set(context.Context, string, *domain.Cart) error   { return nil }
func (noCache) Invalidate(context.Context, string, string) error  { return nil }

// MockNotifier records notices in order.
type MockNotifier struct {
	mu      sync.Mutex
	Notices []cart.Notice
}

func (m *MockNotifier) Notify(_ context.Context, _ string, n cart.Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notices = append(m.Notices, n)
}

func (m *MockNotifier) last() cart.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Notices) == 0 {
		return cart.Notice{}
	}
	return m.Notices[len(m.Notices)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	svc      *CheckoutServiceImpl
	store    *cart.Store
	repo     *MockRepository
	gateway  *MockGateway
	notifier *MockNotifier
}

// newTestCheckoutService wires the service to a real cart store backed by
// in-memory persistence.
func newTestCheckoutService(gateway *MockGateway) *testEnv {
	repo := &MockRepository{carts: map[string]*domain.Cart{}}
	notifier := &MockNotifier{}
	store := cart.NewStore(repo, noCache{}, notifier, discardLogger())
	return &testEnv{
		svc:      NewCheckoutService(store, gateway, notifier, 5*time.Second, discardLogger()),
		store:    store,
		repo:     repo,
		gateway:  gateway,
		notifier: notifier,
	}
}
