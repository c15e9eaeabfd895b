package domain

import (
	"github.com/shopspring/decimal"
)

type CartItem struct {
	Product  ProductRef
	Quantity int
}

// Subtotal is the line's effective price times its quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the shopper's pending selection. TotalPrice is whatever the
// server last reported; the client never recomputes it across requests.
type Cart struct {
	Items      []CartItem
	TotalPrice decimal.Decimal
}

func EmptyCart() Cart {
	return Cart{Items: []CartItem{}, TotalPrice: decimal.Zero}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// TotalItems is the sum of quantities, used for badge counts.
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

func (c Cart) Find(productID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// DerivedTotal sums line subtotals. Only used when the server omits its
// own total.
func (c Cart) DerivedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, TotalPrice: c.TotalPrice}
}

// Validate checks the one-line-per-product invariant.
func (c Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.Product.ID]; ok {
			return &DuplicateLineError{ProductID: item.Product.ID}
		}
		if item.Quantity < 1 {
			return &InvalidLineError{ProductID: item.Product.ID, Quantity: item.Quantity}
		}
		seen[item.Product.ID] = struct{}{}
	}
	return nil
}
