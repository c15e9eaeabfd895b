package apiclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore holds the bearer token for the signed-in user.
// An empty token means signed out.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	return s.SetToken(context.Background(), "")
}

// RedisTokenStore shares one user's token between processes.
type RedisTokenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisTokenStore(client *redis.Client, prefix, userID string, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{
		client: client,
		key:    fmt.Sprintf("%s:%s", prefix, userID),
		ttl:    ttl,
	}
}

func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
