package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cache"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultPersistTimeout = 2 * time.Second

// NewItem is what a caller asks to put in the cart. The store assigns the
// line id.
type NewItem struct {
	MenuItemID string
	Name       string
	UnitPrice  float64
	Quantity   int
	SellerID   string
	SellerName string
}

func (n NewItem) validate() error {
	if n.MenuItemID == "" || n.SellerID == "" {
		return fmt.Errorf("%w: menu item and seller are required", ErrInvalidItem)
	}
	if n.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidItem)
	}
	if n.UnitPrice < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	return nil
}

type session struct {
	mu       sync.Mutex
	cart     *domain.Cart
	lastUsed time.Time
	evicted  bool
}

// Store keeps one in-memory cart per user. Mutations for a user are
// serialized; the persisted copy is written through after each one and is
// allowed to fall behind or disappear.
type Store struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	notifier Notifier
	log      *slog.Logger
	sfg      singleflight.Group // collapses concurrent first loads

	mu       sync.Mutex
	sessions map[string]*session

	persistTimeout time.Duration
	now            func() time.Time
}

func NewStore(repo repository.CartRepository, cache cache.CartCache, notifier Notifier, log *slog.Logger) *Store {
	return &Store{
		repo:           repo,
		cache:          cache,
		notifier:       notifier,
		log:            log,
		sessions:       make(map[string]*session),
		persistTimeout: defaultPersistTimeout,
		now:            time.Now,
	}
}

// GetCart returns a copy of the user's cart. While the persisted copy
// cannot be read, it answers with an empty cart that is not kept.
func (s *Store) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	sess, err := s.lock(ctx, userID)
	if errors.Is(err, ErrCartUnavailable) {
		return s.emptyCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return sess.cart.Clone(), nil
}

// AddItem appends item, or raises the quantity of the line that already
// holds the same menu item.
func (s *Store) AddItem(ctx context.Context, userID string, item NewItem) (*domain.Cart, error) {
	if err := item.validate(); err != nil {
		return nil, err
	}
	sess, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	c := sess.cart
	if i := c.IndexOfMenuItem(item.MenuItemID); i >= 0 {
		existing := c.Items[i]
		s.updateQuantityLocked(ctx, c, existing.ID, existing.Quantity+item.Quantity)
		return c.Clone(), nil
	}

	c.Items = append(c.Items, domain.CartLineItem{
		ID:         uuid.NewString(),
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		UnitPrice:  item.UnitPrice,
		Quantity:   item.Quantity,
		SellerID:   item.SellerID,
		SellerName: item.SellerName,
		AddedAt:    s.now().UTC(),
	})
	s.commit(ctx, c)
	s.notifier.Notify(ctx, userID, Notice{
		Title:       "Added to cart",
		Description: fmt.Sprintf("%s has been added to your cart", item.Name),
		Variant:     VariantDefault,
	})
	return c.Clone(), nil
}

// UpdateQuantity sets the quantity of a line. Zero or less removes it; an
// unknown id changes nothing.
func (s *Store) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error) {
	sess, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	s.updateQuantityLocked(ctx, sess.cart, itemID, quantity)
	return sess.cart.Clone(), nil
}

func (s *Store) RemoveItem(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	sess, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	s.removeLocked(ctx, sess.cart, itemID)
	return sess.cart.Clone(), nil
}

// ClearCart empties the cart and drops the persisted copy.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	sess, err := s.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	s.clearLocked(ctx, sess.cart)
	return nil
}

// WithCart runs fn while holding the user's cart lock, so no mutation can
// interleave. fn gets a snapshot; returning clearCart=true empties the cart
// before the lock is released.
func (s *Store) WithCart(ctx context.Context, userID string, fn func(snapshot *domain.Cart) (clearCart bool, err error)) error {
	sess, err := s.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	clearCart, err := fn(sess.cart.Clone())
	if clearCart {
		s.clearLocked(ctx, sess.cart)
	}
	return err
}

// EvictIdle drops in-memory carts untouched for maxIdle. A later access
// reloads them from the persisted copy.
func (s *Store) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for userID, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		if sess.lastUsed.Before(cutoff) {
			sess.evicted = true
			delete(s.sessions, userID)
			n++
		}
		sess.mu.Unlock()
	}
	return n
}

// RunJanitor evicts idle carts every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				s.log.Debug("evicted idle carts", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) updateQuantityLocked(ctx context.Context, c *domain.Cart, itemID string, quantity int) {
	if quantity <= 0 {
		s.removeLocked(ctx, c, itemID)
		return
	}
	i := c.IndexOf(itemID)
	if i < 0 {
		return
	}
	c.Items[i].Quantity = quantity
	s.commit(ctx, c)
}

func (s *Store) removeLocked(ctx context.Context, c *domain.Cart, itemID string) {
	i := c.IndexOf(itemID)
	if i < 0 {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	s.commit(ctx, c)
	s.notifier.Notify(ctx, c.UserID, Notice{
		Title:       "Removed from cart",
		Description: "Item has been removed from your cart",
		Variant:     VariantDefault,
	})
}

func (s *Store) clearLocked(ctx context.Context, c *domain.Cart) {
	c.Items = []domain.CartLineItem{}
	s.commit(ctx, c)
}

// commit stamps a new revision and writes the cart through.
func (s *Store) commit(ctx context.Context, c *domain.Cart) {
	c.Revision = uuid.NewString()
	c.UpdatedAt = s.now().UTC()
	s.persist(ctx, c)
}

// persist never fails the caller. Errors are logged.
func (s *Store) persist(ctx context.Context, c *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	if c.IsEmpty() {
		if err := s.repo.DeleteCart(ctx, c.UserID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
			s.log.WarnContext(ctx, "failed to delete persisted cart", "user_id", c.UserID, "error", err)
		}
	} else if err := s.repo.UpsertCart(ctx, c.Clone()); err != nil {
		s.log.WarnContext(ctx, "failed to persist cart", "user_id", c.UserID, "error", err)
	}

	if err := s.cache.Invalidate(ctx, c.UserID, c.Revision); err != nil {
		s.log.WarnContext(ctx, "cache invalidate error", "user_id", c.UserID, "error", err)
	}
}

// lock returns the user's session with its mutex held and the cart loaded.
func (s *Store) lock(ctx context.Context, userID string) (*session, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	for {
		sess := s.session(userID)

		sess.mu.Lock()
		loaded := sess.cart != nil
		sess.mu.Unlock()

		var (
			fetched *domain.Cart
			loadErr error
		)
		if !loaded {
			fetched, loadErr = s.load(ctx, userID)
		}

		sess.mu.Lock()
		if sess.evicted {
			sess.mu.Unlock()
			continue
		}
		if sess.cart == nil {
			if fetched == nil && loadErr == nil {
				fetched, loadErr = s.load(ctx, userID)
			}
			// sess.cart stays nil so the next access retries the load.
			if loadErr != nil {
				sess.mu.Unlock()
				return nil, loadErr
			}
			sess.cart = fetched
		}
		sess.lastUsed = s.now()
		return sess, nil
	}
}

func (s *Store) session(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{}
		s.sessions[userID] = sess
	}
	return sess
}

// load reads the persisted cart, cache first. A missing record is an empty
// cart; any other repository failure is ErrCartUnavailable. The returned
// copy always carries a fresh revision, so checkout keys never outlive the
// session that produced them.
func (s *Store) load(ctx context.Context, userID string) (*domain.Cart, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "user_id", userID, "error", err)
		}

		c, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return s.emptyCart(userID), nil
		}
		if err != nil {
			s.log.WarnContext(ctx, "failed to load persisted cart", "user_id", userID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}

		// Filled before the session sees the cart, so no commit can
		// invalidate ahead of it.
		if err := s.cache.Set(ctx, userID, c.Clone()); err != nil {
			s.log.WarnContext(ctx, "cache set error", "user_id", userID, "error", err)
		}

		return c, nil
	})
	if err != nil {
		return nil, err
	}

	c := v.(*domain.Cart).Clone()
	c.UserID = userID
	if c.Items == nil {
		c.Items = []domain.CartLineItem{}
	}
	c.Revision = uuid.NewString()
	return c, nil
}

func (s *Store) emptyCart(userID string) *domain.Cart {
	now := s.now().UTC()
	return &domain.Cart{
		UserID:    userID,
		Items:     []domain.CartLineItem{},
		Revision:  uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
