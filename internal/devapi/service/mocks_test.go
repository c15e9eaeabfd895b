package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/cache"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

type mockProducts struct {
	products map[int64]domain.Product
	err      error
}

func newMockProducts() *mockProducts {
	return &mockProducts{products: map[int64]domain.Product{
		7: {ID: 7, Name: "Sổ Tay", Price: decimal.NewFromInt(150000), Quantity: 10, Status: domain.ProductStatusAvailable},
		8: {ID: 8, Name: "Bút", Price: decimal.NewFromInt(50000), DiscountPrice: decimal.NewNullDecimal(decimal.NewFromInt(40000)), Quantity: 100, Status: domain.ProductStatusAvailable, ImageURL: "https://img/pen.jpg"},
		9: {ID: 9, Name: "Nón", Price: decimal.NewFromInt(110000), Quantity: 0, Status: domain.ProductStatusOutOfStock},
	}}
}

func (m *mockProducts) ListProducts(context.Context, repository.ProductFilter) ([]domain.Product, int, error) {
	return nil, 0, m.err
}

func (m *mockProducts) FeaturedProducts(context.Context, int) ([]domain.Product, error) {
	return nil, m.err
}

func (m *mockProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockProducts) GetProducts(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mockProducts) ListCategories(context.Context) ([]domain.Category, error) {
	return nil, m.err
}

type mockCache struct {
	mu      sync.Mutex
	carts   map[int64]*repository.Cart
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[int64]*repository.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID int64) (*repository.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, userID int64, cart *repository.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	m.deletes++
	return nil
}

// countingCarts counts repository reads. When gate is set, reads block
// until it is closed.
type countingCarts struct {
	*repository.MemoryCartRepository
	gate  chan struct{}
	mu    sync.Mutex
	reads int
}

func (c *countingCarts) GetCart(ctx context.Context, userID int64) (*repository.Cart, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	if c.gate != nil {
		<-c.gate
	}
	return c.MemoryCartRepository.GetCart(ctx, userID)
}

func (c *countingCarts) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
