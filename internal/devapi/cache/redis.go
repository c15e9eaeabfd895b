package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
)

const DefaultTTL = 5 * time.Minute

// NewRedisCache stores carts for ttl plus up to a fifth of ttl of jitter so
// entries written together do not expire together.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, userID int64) (*repository.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart repository.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID int64, cart *repository.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL + r.jitter()
	if err := r.client.Set(ctx, cacheKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) jitter() time.Duration {
	window := int64(r.baseTTL / 5)
	if window <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(window))
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("cart:%d", userID)
}
