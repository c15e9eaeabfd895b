// Package repository stores carts, orders and the product catalog for the
// reference storefront API.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateOrder  = errors.New("order for this idempotency key already exists")
	ErrStatusConflict  = errors.New("order status changed concurrently")
	ErrProductNotFound = errors.New("product not found")
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("product already reviewed by this user")
)

// CartLine is one stored cart entry. Product details are joined at read
// time so carts never hold stale prices.
type CartLine struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

type Cart struct {
	UserID    int64      `bson:"user_id" json:"user_id"`
	Items     []CartLine `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// CartRepository holds at most one line per product per user.
type CartRepository interface {
	GetCart(ctx context.Context, userID int64) (*Cart, error)
	// AddItem inserts the line or increments its quantity.
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	DeleteCart(ctx context.Context, userID int64) error
}

type OrderRepository interface {
	// CreateOrder assigns ID and OrderDate. A repeated idempotency key for
	// the same user fails with ErrDuplicateOrder.
	CreateOrder(ctx context.Context, order *domain.Order, idempotencyKey string) error
	GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	// ListOrders returns newest first. userID 0 lists every order.
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)
	// UpdateStatus moves the order from one status to another, failing
	// with ErrStatusConflict when it is no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error
}

type ProductFilter struct {
	Page       int
	Limit      int
	CategoryID int64
	Status     domain.ProductStatus
	Search     string
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
	SellerID   int64
	Sort       string
}

type ProductRepository interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, int, error)
	FeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type ReviewFilter struct {
	ProductID int64
	UserID    int64
	Rating    int
	Page      int
	Limit     int
}

type ReviewRepository interface {
	// ListReviews returns newest first along with the unpaged total.
	ListReviews(ctx context.Context, f ReviewFilter) ([]domain.Review, int, error)
	GetReview(ctx context.Context, id int64) (*domain.Review, error)
	// CreateReview assigns ID and CreatedAt. One review per user per
	// product; a second fails with ErrDuplicateReview.
	CreateReview(ctx context.Context, review *domain.Review) error
}

// OrderNumber is the display label for a stored order id.
func OrderNumber(id int64) string {
	return fmt.Sprintf("UM-%06d", id)
}
