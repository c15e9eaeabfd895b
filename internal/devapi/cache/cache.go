// Package cache keeps recently read carts of the reference API in Redis.
package cache

import (
	"context"
	"errors"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
)

type CartCache interface {
	Get(ctx context.Context, userID int64) (*repository.Cart, error)
	Set(ctx context.Context, userID int64, cart *repository.Cart) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
