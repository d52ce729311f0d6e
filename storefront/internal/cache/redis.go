package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 15 * time.Minute
	maxJitter  = 5 * time.Minute
)

// setIfCurrent stores the payload unless the revision marker names a
// different revision.
var setIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current and current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache caches carts for ttl plus up to five minutes of jitter.
// A non-positive ttl means DefaultTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

// Set fills the entry for userID. A fill whose revision is older than the
// last invalidation is skipped without error.
func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// jitter spreads expiry so carts cached together do not miss together
	ttl := r.ttl + time.Duration(rand.Int63n(int64(maxJitter)+1))
	keys := []string{cartKey(userID), revisionKey(userID)}
	if err := setIfCurrent.Run(ctx, r.client, keys, cart.Revision, payload, ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops the entry and records revision as the only one a later
// fill may store.
func (r *RedisCache) Invalidate(ctx context.Context, userID, revision string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, revisionKey(userID), revision, r.ttl+maxJitter)
		pipe.Del(ctx, cartKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

// Both keys share a hash tag so the script runs on one cluster slot.
func cartKey(userID string) string {
	return fmt.Sprintf("cart:{%s}", userID)
}

func revisionKey(userID string) string {
	return fmt.Sprintf("cart:{%s}:rev", userID)
}
