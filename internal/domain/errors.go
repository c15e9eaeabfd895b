package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNotInCart         = errors.New("product is not in cart")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidProduct    = errors.New("product id must be positive")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrMalformedCart     = errors.New("malformed cart")
	ErrUnknownStatus     = errors.New("unknown order status")

	ErrMissingShippingAddress = errors.New("shipping address is required")
	ErrMissingPhone           = errors.New("phone number is required")
	ErrUnknownPaymentMethod   = errors.New("unknown payment method")
)

type DuplicateLineError struct {
	ProductID int64
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("cart has more than one line for product %d", e.ProductID)
}

func (e *DuplicateLineError) Unwrap() error { return ErrMalformedCart }

type InvalidLineError struct {
	ProductID int64
	Quantity  int
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("cart line for product %d has quantity %d", e.ProductID, e.Quantity)
}

func (e *InvalidLineError) Unwrap() error { return ErrMalformedCart }

// TransitionError reports a rejected status change. Message, when set,
// is the server's wording and is shown to the user unchanged.
type TransitionError struct {
	From    OrderStatus
	To      OrderStatus
	Message string
}

func (e *TransitionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
