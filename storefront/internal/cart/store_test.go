package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cache"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m         sync.RWMutex
	carts     map[string]*domain.Cart
	getErr    error
	upsertErr error
	getCalls  atomic.Int32
	deletes   int
	getDelay  time.Duration
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	m.getCalls.Add(1)
	time.Sleep(m.getDelay)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *mockRepository) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.carts[c.UserID] = c.Clone()
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	if _, ok := m.carts[userID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

func (m *mockRepository) stored(userID string) (*domain.Cart, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	c, ok := m.carts[userID]
	return c, ok
}

type mockCache struct {
	m         sync.RWMutex
	carts     map[string]*domain.Cart
	revisions map[string]string
	err       error
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[string]*domain.Cart{}, revisions: map[string]string{}}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, userID string, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if rev, ok := m.revisions[userID]; ok && rev != c.Revision {
		return m.err
	}
	m.carts[userID] = c.Clone()
	return m.err
}

func (m *mockCache) Invalidate(_ context.Context, userID, revision string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.revisions[userID] = revision
	delete(m.carts, userID)
	return m.err
}

type recordingNotifier struct {
	m       sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, n Notice) {
	r.m.Lock()
	defer r.m.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) titles() []string {
	r.m.Lock()
	defer r.m.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Title)
	}
	return out
}

type fixture struct {
	store    *Store
	repo     *mockRepository
	cache    *mockCache
	notifier *recordingNotifier
}

func newFixture() *fixture {
	f := &fixture{repo: newMockRepository(), cache: newMockCache(), notifier: &recordingNotifier{}}
	f.store = NewStore(f.repo, f.cache, f.notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func item(menuItemID, sellerID string, price float64, qty int) NewItem {
	return NewItem{
		MenuItemID: menuItemID,
		Name:       "Item " + menuItemID,
		UnitPrice:  price,
		Quantity:   qty,
		SellerID:   sellerID,
		SellerName: "Seller " + sellerID,
	}
}

func TestGetCart_NewUserIsEmpty(t *testing.T) {
	f := newFixture()

	c, err := f.store.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID)
	assert.Empty(t, c.Items)
	assert.NotEmpty(t, c.Revision)
	assert.Equal(t, 0.0, c.TotalAmount())
}

func TestGetCart_RequiresUser(t *testing.T) {
	f := newFixture()
	_, err := f.store.GetCart(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestAddItem_AppendsAndNotifies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 1))
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.NotEmpty(t, c.Items[0].ID)
	assert.Equal(t, "Seller S1", c.Items[0].SellerName)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, Notice{Title: "Added to cart", Description: "Item A has been added to your cart", Variant: VariantDefault}, f.notifier.notices[0])
}

func TestAddItem_MergesSameMenuItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 2))
	require.NoError(t, err)
	c, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 3))
	require.NoError(t, err)

	require.Len(t, c.Items, 1, "same menu item must not be duplicated")
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, first.Items[0].ID, c.Items[0].ID)
	assert.Equal(t, []string{"Added to cart"}, f.notifier.titles())
}

func TestAddItem_RejectsInvalid(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, it := range []NewItem{
		item("A", "S1", 10, 0),
		item("A", "S1", -1, 1),
		item("", "S1", 10, 1),
		item("A", "", 10, 1),
	} {
		_, err := f.store.AddItem(ctx, "user-1", it)
		assert.ErrorIs(t, err, ErrInvalidItem)
	}

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 1))
	require.NoError(t, err)
	id := c.Items[0].ID

	c, err = f.store.UpdateQuantity(ctx, "user-1", id, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, 400.0, c.TotalAmount())
}

func TestUpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, q := range []int{0, -3} {
		f := newFixture()
		ctx := context.Background()

		c, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 2))
		require.NoError(t, err)

		c, err = f.store.UpdateQuantity(ctx, "user-1", c.Items[0].ID, q)
		require.NoError(t, err)
		assert.Empty(t, c.Items)
		assert.Equal(t, []string{"Added to cart", "Removed from cart"}, f.notifier.titles())
	}
}

func TestUpdateQuantity_UnknownIDIsNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	before, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 2))
	require.NoError(t, err)

	after, err := f.store.UpdateQuantity(ctx, "user-1", "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestRemoveItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 1))
	require.NoError(t, err)
	c, err := f.store.AddItem(ctx, "user-1", item("B", "S1", 50, 2))
	require.NoError(t, err)

	c, err = f.store.RemoveItem(ctx, "user-1", c.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "B", c.Items[0].MenuItemID)

	// absent id: nothing happens, no notice
	c, err = f.store.RemoveItem(ctx, "user-1", "missing")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, []string{"Added to cart", "Added to cart", "Removed from cart"}, f.notifier.titles())
}

func TestTotalsStayConsistent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 1))
	require.NoError(t, err)
	c, err := f.store.AddItem(ctx, "user-1", item("B", "S1", 50, 2))
	require.NoError(t, err)
	_, err = f.store.AddItem(ctx, "user-1", item("C", "S2", 30, 1))
	require.NoError(t, err)
	_, err = f.store.UpdateQuantity(ctx, "user-1", c.Items[1].ID, 3)
	require.NoError(t, err)

	c, err = f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)

	var sum float64
	var count int
	for _, it := range c.Items {
		sum += it.UnitPrice * float64(it.Quantity)
		count += it.Quantity
	}
	assert.Equal(t, sum, c.TotalAmount())
	assert.Equal(t, count, c.ItemCount())
	assert.Equal(t, 280.0, c.TotalAmount())
	assert.Equal(t, 5, c.ItemCount())
}

func TestRevisionChangesOnMutation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c0, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	c1, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 10, 1))
	require.NoError(t, err)
	c2, err := f.store.UpdateQuantity(ctx, "user-1", c1.Items[0].ID, 2)
	require.NoError(t, err)

	assert.NotEqual(t, c0.Revision, c1.Revision)
	assert.NotEqual(t, c1.Revision, c2.Revision)
}

func TestPersistence_WriteThroughAndDeleteWhenEmpty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 1))
	require.NoError(t, err)

	stored, ok := f.repo.stored("user-1")
	require.True(t, ok)
	assert.Len(t, stored.Items, 1)
	assert.Equal(t, c.Revision, stored.Revision)

	_, err = f.store.RemoveItem(ctx, "user-1", c.Items[0].ID)
	require.NoError(t, err)

	_, ok = f.repo.stored("user-1")
	assert.False(t, ok, "empty cart must not stay persisted")
}

func TestClearCart_RemovesPersistedRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 100, 1))
	require.NoError(t, err)
	_, err = f.store.AddItem(ctx, "user-1", item("B", "S2", 50, 1))
	require.NoError(t, err)

	require.NoError(t, f.store.ClearCart(ctx, "user-1"))

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	_, ok := f.repo.stored("user-1")
	assert.False(t, ok)
}

func TestPersistenceFailureIsNotSurfaced(t *testing.T) {
	f := newFixture()
	f.repo.upsertErr = errors.New("mongo down")
	f.cache.err = errors.New("redis down")

	c, err := f.store.AddItem(context.Background(), "user-1", item("A", "S1", 100, 1))
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestLoad_FromRepository(t *testing.T) {
	f := newFixture()
	f.repo.carts["user-1"] = &domain.Cart{
		UserID:   "user-1",
		Revision: "persisted",
		Items:    []domain.CartLineItem{{ID: "x", MenuItemID: "A", UnitPrice: 5, Quantity: 2, SellerID: "S1"}},
	}

	c, err := f.store.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 10.0, c.TotalAmount())

	cached, err := f.cache.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "persisted", cached.Revision)
}

func TestLoad_StampsFreshRevision(t *testing.T) {
	f := newFixture()
	f.repo.carts["user-1"] = &domain.Cart{
		UserID:   "user-1",
		Revision: "persisted",
		Items:    []domain.CartLineItem{{ID: "x", MenuItemID: "A", UnitPrice: 5, Quantity: 2, SellerID: "S1"}},
	}

	c, err := f.store.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Revision)
	assert.NotEqual(t, "persisted", c.Revision)
}

// A cart whose checkout succeeded but whose persisted copy survived must not
// replay the old order keys after the session is reloaded.
func TestEvictIdle_ReloadGetsNewRevision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	now := time.Now()
	f.store.now = func() time.Time { return now }

	before, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 10, 2))
	require.NoError(t, err)
	stored, ok := f.repo.stored("user-1")
	require.True(t, ok)
	require.Equal(t, before.Revision, stored.Revision)

	now = now.Add(time.Hour)
	require.Equal(t, 1, f.store.EvictIdle(30*time.Minute))

	after, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	assert.NotEqual(t, before.Revision, after.Revision)
}

func TestLoad_CacheHitSkipsRepository(t *testing.T) {
	f := newFixture()
	f.cache.carts["user-1"] = &domain.Cart{
		UserID:   "user-1",
		Revision: "cached",
		Items:    []domain.CartLineItem{{ID: "x", MenuItemID: "A", UnitPrice: 5, Quantity: 1, SellerID: "S1"}},
	}

	c, err := f.store.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "A", c.Items[0].MenuItemID)
	assert.Equal(t, int32(0), f.repo.getCalls.Load())
}

func TestLoad_RepositoryErrorIsNotKept(t *testing.T) {
	f := newFixture()
	f.repo.getErr = errors.New("mongo down")

	c, err := f.store.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = f.store.GetCart(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.repo.getCalls.Load(), "failed load must be retried")
}

func TestLoad_TransientFailureDoesNotOverwritePersistedCart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.carts["user-1"] = &domain.Cart{
		UserID:   "user-1",
		Revision: "persisted",
		Items:    []domain.CartLineItem{{ID: "a", MenuItemID: "A", Name: "Item A", UnitPrice: 10, Quantity: 2, SellerID: "S1"}},
	}
	f.repo.getErr = context.DeadlineExceeded

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = f.store.AddItem(ctx, "user-1", item("B", "S2", 5, 1))
	require.ErrorIs(t, err, ErrCartUnavailable)
	stored, ok := f.repo.stored("user-1")
	require.True(t, ok)
	require.Len(t, stored.Items, 1, "mutation on an unloaded cart must not be persisted")

	f.repo.getErr = nil

	c, err = f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)

	c, err = f.store.AddItem(ctx, "user-1", item("B", "S2", 5, 1))
	require.NoError(t, err)
	require.Len(t, c.Items, 2)

	stored, ok = f.repo.stored("user-1")
	require.True(t, ok)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "A", stored.Items[0].MenuItemID)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, "B", stored.Items[1].MenuItemID)
}

func TestLoad_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture()
	f.repo.carts["user-1"] = &domain.Cart{
		UserID: "user-1",
		Items:  []domain.CartLineItem{{ID: "a", MenuItemID: "A", UnitPrice: 10, Quantity: 1, SellerID: "S1"}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestCommit_StaleFillIsDropped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 10, 1))
	require.NoError(t, err)

	require.NoError(t, f.cache.Set(ctx, "user-1", &domain.Cart{UserID: "user-1", Revision: "older"}))
	_, err = f.cache.Get(ctx, "user-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	stored, ok := f.repo.stored("user-1")
	require.True(t, ok)
	require.NoError(t, f.cache.Set(ctx, "user-1", stored))
	cached, err := f.cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, c.Revision, cached.Revision)
}

func TestLoad_OnlyOncePerSession(t *testing.T) {
	f := newFixture()
	f.repo.getDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.GetCart(context.Background(), "user-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.repo.getCalls.Load())
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 1, 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 50, c.Items[0].Quantity)
}

func TestUsersAreIsolated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 1, 1))
	require.NoError(t, err)

	c, err := f.store.GetCart(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestWithCart_ClearsOnRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 1, 1))
	require.NoError(t, err)

	err = f.store.WithCart(ctx, "user-1", func(snapshot *domain.Cart) (bool, error) {
		assert.Len(t, snapshot.Items, 1)
		return true, nil
	})
	require.NoError(t, err)

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestWithCart_KeepsCartOnError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 1, 1))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = f.store.WithCart(ctx, "user-1", func(*domain.Cart) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestWithCart_BlocksMutations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = f.store.WithCart(ctx, "user-1", func(*domain.Cart) (bool, error) {
			close(entered)
			<-release
			return false, nil
		})
	}()
	<-entered

	go func() {
		_, _ = f.store.AddItem(ctx, "user-1", item("A", "S1", 1, 1))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("mutation ran while cart was locked")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutation never ran")
	}
}

func TestEvictIdle_ReloadsFromPersistence(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	now := time.Now()
	f.store.now = func() time.Time { return now }

	_, err := f.store.AddItem(ctx, "user-1", item("A", "S1", 10, 2))
	require.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, f.store.EvictIdle(30*time.Minute))
	assert.Equal(t, 0, f.store.EvictIdle(30*time.Minute))

	c, err := f.store.GetCart(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}
