package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a line frozen at purchase time.
type OrderItem struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID          int64
	Number      string
	UserID      int64
	Items       []OrderItem
	TotalAmount decimal.Decimal
	Status      OrderStatus
	OrderDate   time.Time

	ShippingAddress string
	Phone           string
	PaymentMethod   OrderPaymentMethod
	Notes           string
}

// OrderNumber is the display label: the server's number when it sent one,
// otherwise "UN" and the zero-padded id.
func (o Order) OrderNumber() string {
	if o.Number != "" {
		return o.Number
	}
	return fmt.Sprintf("UN%05d", o.ID)
}

// Cancellable reports whether the owning shopper may cancel the order.
// Sellers and admins may cancel later states through the transition table.
func (o Order) Cancellable() bool {
	return o.Status == OrderStatusPending
}

// Transition moves the order to next when the table allows it.
func (o *Order) Transition(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return &TransitionError{From: o.Status, To: next}
	}
	o.Status = next
	return nil
}

// FreezeItems copies cart lines into order lines priced at their effective
// price. The result shares nothing with the cart.
func FreezeItems(cart Cart) []OrderItem {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Price:     line.Product.EffectivePrice(),
			Quantity:  line.Quantity,
		})
	}
	return items
}

// ItemsTotal sums frozen line subtotals.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
