// Package cart maps the storefront cart endpoints onto domain.Cart.
// Every operation returns the full cart as the server reports it.
package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/apiclient"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// DefaultImage is used for lines whose product has no picture.
const DefaultImage = "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?auto=format&fit=crop&w=400&q=80"

// Doer sends one API request. *apiclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any, opts ...apiclient.RequestOption) error
}

type Client struct {
	api    Doer
	logger *zap.Logger
}

func NewClient(api Doer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, logger: logger}
}

type addRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// Fetch returns the current cart. A missing cart is an empty cart;
// authentication and transport failures are returned.
func (c *Client) Fetch(ctx context.Context) (domain.Cart, error) {
	var p cartPayload
	err := c.api.Do(ctx, http.MethodGet, "/cart", nil, &p)
	if errors.Is(err, apiclient.ErrNotFound) {
		return domain.EmptyCart(), nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("fetch cart: %w", err)
	}
	return c.toCart(p)
}

// Add inserts productID or increments its quantity server side.
func (c *Client) Add(ctx context.Context, productID int64, quantity int) (domain.Cart, error) {
	if productID <= 0 {
		return domain.Cart{}, domain.ErrInvalidProduct
	}
	if quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	var p cartPayload
	err := c.api.Do(ctx, http.MethodPost, "/cart/add", addRequest{ProductID: productID, Quantity: quantity}, &p)
	if errors.Is(err, apiclient.ErrNotFound) {
		return domain.Cart{}, fmt.Errorf("add product %d: %w: %w", productID, domain.ErrInvalidProduct, err)
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("add product %d: %w", productID, err)
	}
	return c.result(ctx, p)
}

// SetQuantity sets an absolute quantity. Zero or less removes the line.
func (c *Client) SetQuantity(ctx context.Context, productID int64, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return c.Remove(ctx, productID)
	}

	var p cartPayload
	path := fmt.Sprintf("/cart/items/%d", productID)
	err := c.api.Do(ctx, http.MethodPatch, path, quantityRequest{Quantity: quantity}, &p)
	if errors.Is(err, apiclient.ErrNotFound) {
		return domain.Cart{}, fmt.Errorf("update product %d: %w: %w", productID, domain.ErrNotInCart, err)
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("update product %d: %w", productID, err)
	}
	return c.result(ctx, p)
}

func (c *Client) Remove(ctx context.Context, productID int64) (domain.Cart, error) {
	var p cartPayload
	path := fmt.Sprintf("/cart/items/%d", productID)
	err := c.api.Do(ctx, http.MethodDelete, path, nil, &p)
	if errors.Is(err, apiclient.ErrNotFound) {
		return domain.Cart{}, fmt.Errorf("remove product %d: %w: %w", productID, domain.ErrNotInCart, err)
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("remove product %d: %w", productID, err)
	}
	return c.result(ctx, p)
}

func (c *Client) Clear(ctx context.Context) (domain.Cart, error) {
	var p cartPayload
	if err := c.api.Do(ctx, http.MethodDelete, "/cart", nil, &p); err != nil {
		return domain.Cart{}, fmt.Errorf("clear cart: %w", err)
	}
	if p.Items == nil {
		return domain.EmptyCart(), nil
	}
	return c.toCart(p)
}

// result uses the cart carried by a mutation response, or fetches it once
// when the server replied without one.
func (c *Client) result(ctx context.Context, p cartPayload) (domain.Cart, error) {
	if p.Items == nil {
		c.logger.Debug("mutation response carried no cart, fetching")
		return c.Fetch(ctx)
	}
	return c.toCart(p)
}

func (c *Client) toCart(p cartPayload) (domain.Cart, error) {
	cart := p.cart()
	if err := cart.Validate(); err != nil {
		c.logger.Warn("server returned malformed cart", zap.Error(err))
		return domain.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}
