// Package service holds the business rules of the reference storefront API:
// cart pricing and stock checks, checkout and order status changes.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrProductUnavailable = errors.New("product is not available")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrForbidden          = errors.New("not allowed to modify this order")
	ErrInvalidIdempotency = errors.New("idempotency key too long")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// StockError reports a request for more units than the product has.
type StockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("only %d left in stock for product %d, requested %d", e.Available, e.ProductID, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
