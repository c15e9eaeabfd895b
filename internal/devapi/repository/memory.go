package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// MemoryCartRepository implements CartRepository in process memory.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[int64]*Cart
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{carts: make(map[int64]*Cart)}
}

func (r *MemoryCartRepository) GetCart(_ context.Context, userID int64) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	cp := *cart
	cp.Items = append([]CartLine(nil), cart.Items...)
	return &cp, nil
}

func (r *MemoryCartRepository) AddItem(_ context.Context, userID, productID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cart, ok := r.carts[userID]
	if !ok {
		cart = &Cart{UserID: userID, CreatedAt: now}
		r.carts[userID] = cart
	}
	cart.UpdatedAt = now
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			return nil
		}
	}
	cart.Items = append(cart.Items, CartLine{ProductID: productID, Quantity: quantity, AddedAt: now})
	return nil
}

func (r *MemoryCartRepository) SetQuantity(_ context.Context, userID, productID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, cart := r.find(userID, productID)
	if line == nil {
		return ErrItemNotFound
	}
	line.Quantity = quantity
	cart.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryCartRepository) RemoveItem(_ context.Context, userID, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return ErrItemNotFound
	}
	for i, line := range cart.Items {
		if line.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotFound
}

func (r *MemoryCartRepository) DeleteCart(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[userID]; !ok {
		return ErrCartNotFound
	}
	delete(r.carts, userID)
	return nil
}

func (r *MemoryCartRepository) find(userID, productID int64) (*CartLine, *Cart) {
	cart, ok := r.carts[userID]
	if !ok {
		return nil, nil
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i], cart
		}
	}
	return nil, nil
}

type idempotencyKey struct {
	userID int64
	key    string
}

// MemoryOrderRepository implements OrderRepository in process memory.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]*domain.Order
	keys   map[idempotencyKey]int64
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[int64]*domain.Order),
		keys:   make(map[idempotencyKey]int64),
	}
}

func (r *MemoryOrderRepository) CreateOrder(_ context.Context, order *domain.Order, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key != "" {
		if _, ok := r.keys[idempotencyKey{order.UserID, key}]; ok {
			return ErrDuplicateOrder
		}
	}
	r.nextID++
	order.ID = r.nextID
	order.Number = OrderNumber(order.ID)
	order.OrderDate = time.Now().UTC()

	stored := cloneOrder(*order)
	r.orders[order.ID] = &stored
	if key != "" {
		r.keys[idempotencyKey{order.UserID, key}] = order.ID
	}
	return nil
}

func (r *MemoryOrderRepository) GetByIdempotencyKey(_ context.Context, userID int64, key string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.keys[idempotencyKey{userID, key}]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o := cloneOrder(*r.orders[id])
	return &o, nil
}

func (r *MemoryOrderRepository) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o := cloneOrder(*stored)
	return &o, nil
}

func (r *MemoryOrderRepository) ListOrders(_ context.Context, userID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]domain.Order, 0)
	for _, o := range r.orders {
		if userID == 0 || o.UserID == userID {
			orders = append(orders, cloneOrder(*o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (r *MemoryOrderRepository) UpdateStatus(_ context.Context, id int64, from, to domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != from {
		return ErrStatusConflict
	}
	o.Status = to
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}
