package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/cache"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// CartItemView is one cart line joined with current product data.
type CartItemView struct {
	ID                   int64               `json:"id"`
	ProductID            int64               `json:"product_id"`
	Quantity             int                 `json:"quantity"`
	ProductName          string              `json:"product_name"`
	ProductPrice         decimal.Decimal     `json:"product_price"`
	ProductDiscountPrice decimal.NullDecimal `json:"product_discount_price"`
	ProductImage         *string             `json:"product_image"`
	ProductStatus        string              `json:"product_status"`
	AvailableQuantity    int                 `json:"available_quantity"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
}

type CartSummary struct {
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

type CartView struct {
	Items   []CartItemView `json:"items"`
	Summary CartSummary    `json:"summary"`
}

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group
	logger   *zap.Logger
}

// NewCartService wires the cart rules. A nil cache disables caching.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, c cache.CartCache, logger *zap.Logger) *CartService {
	if c == nil {
		c = noCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{carts: carts, products: products, cache: c, logger: logger}
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	cart, err := s.stored(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// AddItem inserts the product or increments its line.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.purchasable(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.stored(ctx, userID)
	if err != nil {
		return nil, err
	}
	requested := quantity
	for _, line := range cart.Items {
		if line.ProductID == productID {
			requested += line.Quantity
		}
	}
	if requested > product.Quantity {
		return nil, &StockError{ProductID: productID, Requested: requested, Available: product.Quantity}
	}

	if err := s.carts.AddItem(ctx, userID, productID, quantity); err != nil {
		s.logger.Error("repo add item error", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.invalidateCache(userID)
	return s.reload(ctx, userID)
}

// UpdateQuantity sets an absolute quantity. Zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*CartView, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	product, err := s.purchasable(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Quantity {
		return nil, &StockError{ProductID: productID, Requested: quantity, Available: product.Quantity}
	}

	if err := s.carts.SetQuantity(ctx, userID, productID, quantity); err != nil {
		s.logger.Warn("repo update item quantity error", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.invalidateCache(userID)
	return s.reload(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) (*CartView, error) {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		s.logger.Warn("repo remove item error", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.invalidateCache(userID)
	return s.reload(ctx, userID)
}

// ClearCart empties the cart. Clearing a cart that does not exist succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID int64) (*CartView, error) {
	if err := s.carts.DeleteCart(ctx, userID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.logger.Error("repo delete cart error", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.invalidateCache(userID)
	return &CartView{Items: []CartItemView{}}, nil
}

// Lines returns the stored cart lines without product data.
func (s *CartService) Lines(ctx context.Context, userID int64) ([]repository.CartLine, error) {
	cart, err := s.stored(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.Items, nil
}

// Consume takes ordered quantities out of the cart. Lines ordered in full
// are removed; lines the order did not include stay.
func (s *CartService) Consume(ctx context.Context, userID int64, items []CheckoutItem) error {
	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	defer s.invalidateCache(userID)

	ordered := make(map[int64]int, len(items))
	for _, it := range items {
		ordered[it.ProductID] += it.Quantity
	}
	for _, line := range cart.Items {
		qty, ok := ordered[line.ProductID]
		if !ok {
			continue
		}
		if line.Quantity <= qty {
			err = s.carts.RemoveItem(ctx, userID, line.ProductID)
		} else {
			err = s.carts.SetQuantity(ctx, userID, line.ProductID, line.Quantity-qty)
		}
		if err != nil && !errors.Is(err, repository.ErrItemNotFound) {
			return fmt.Errorf("consume product %d: %w", line.ProductID, err)
		}
	}
	return nil
}

// reload reads the repository directly so a write is never answered with a
// cart read before it.
func (s *CartService) reload(ctx context.Context, userID int64) (*CartView, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &CartView{Items: []CartItemView{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// stored reads the cart through the cache. Concurrent misses for one user
// share a single repository read.
func (s *CartService) stored(ctx context.Context, userID int64) (*repository.Cart, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.Int64("user_id", userID), zap.Error(err))
		}

		cart, err = s.carts.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			now := time.Now()
			return &repository.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		go func(cart *repository.Cart) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, userID, cart); err != nil {
				s.logger.Warn("cache set error", zap.Int64("user_id", userID), zap.Error(err))
			}
		}(cart)
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*repository.Cart), nil
}

// view prices the lines at current catalog data. Lines whose product has
// left the catalog are skipped.
func (s *CartService) view(ctx context.Context, cart *repository.Cart) (*CartView, error) {
	out := &CartView{Items: make([]CartItemView, 0, len(cart.Items))}
	if len(cart.Items) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(cart.Items))
	for _, line := range cart.Items {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	total := decimal.Zero
	for i, line := range cart.Items {
		p, ok := products[line.ProductID]
		if !ok {
			s.logger.Warn("cart references missing product",
				zap.Int64("user_id", cart.UserID), zap.Int64("product_id", line.ProductID))
			continue
		}
		subtotal := p.Ref().EffectivePrice().Mul(decimal.NewFromInt(int64(line.Quantity)))
		item := CartItemView{
			ID:                   int64(i + 1),
			ProductID:            p.ID,
			Quantity:             line.Quantity,
			ProductName:          p.Name,
			ProductPrice:         p.Price,
			ProductDiscountPrice: p.DiscountPrice,
			ProductStatus:        string(p.Status),
			AvailableQuantity:    p.Quantity,
			Subtotal:             subtotal,
		}
		if p.ImageURL != "" {
			image := p.ImageURL
			item.ProductImage = &image
		}
		out.Items = append(out.Items, item)
		out.Summary.TotalItems += line.Quantity
		total = total.Add(subtotal)
	}
	out.Summary.ItemCount = len(out.Items)
	out.Summary.TotalAmount = total
	return out, nil
}

func (s *CartService) purchasable(ctx context.Context, productID int64) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductStatusAvailable {
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductUnavailable)
	}
	return product, nil
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", zap.Int64("user_id", userID), zap.Error(err))
	}
}

type noCache struct{}

func (noCache) Get(context.Context, int64) (*repository.Cart, error) { return nil, cache.ErrCacheMiss }
func (noCache) Set(context.Context, int64, *repository.Cart) error   { return nil }
func (noCache) Delete(context.Context, int64) error                  { return nil }
