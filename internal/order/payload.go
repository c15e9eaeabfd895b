package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// The orders API has served both snake_case and camelCase field names;
// both are accepted.
type orderItemPayload struct {
	ProductID    int64           `json:"product_id"`
	ProductIDAlt int64           `json:"productId"`
	Name         string          `json:"name"`
	ProductName  string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

type orderPayload struct {
	ID             int64               `json:"id"`
	OrderNumber    string              `json:"order_number"`
	OrderNumberAlt string              `json:"orderNumber"`
	UserID         int64               `json:"user_id"`
	Items          []orderItemPayload  `json:"items"`
	TotalAmount    decimal.NullDecimal `json:"total_amount"`
	TotalAmountAlt decimal.NullDecimal `json:"totalAmount"`
	Status         string              `json:"status"`
	OrderDate      string              `json:"order_date"`
	OrderDateAlt   string              `json:"orderDate"`
	CreatedAt      string              `json:"created_at"`

	ShippingAddress string `json:"shipping_address"`
	Phone           string `json:"phone"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

type listPayload struct {
	Orders []orderPayload `json:"orders"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p orderPayload) order() (domain.Order, error) {
	status := domain.OrderStatusPending
	if p.Status != "" {
		parsed, err := domain.ParseOrderStatus(p.Status)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d: %w", p.ID, err)
		}
		status = parsed
	}

	items := make([]domain.OrderItem, 0, len(p.Items))
	for _, it := range p.Items {
		id := it.ProductID
		if id == 0 {
			id = it.ProductIDAlt
		}
		items = append(items, domain.OrderItem{
			ProductID: id,
			Name:      firstNonEmpty(it.Name, it.ProductName),
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}

	var method domain.OrderPaymentMethod
	if p.PaymentMethod != "" {
		parsed, err := domain.ParseOrderPaymentMethod(p.PaymentMethod)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d: %w", p.ID, err)
		}
		method = parsed
	}

	total := domain.ItemsTotal(items)
	switch {
	case p.TotalAmount.Valid:
		total = p.TotalAmount.Decimal
	case p.TotalAmountAlt.Valid:
		total = p.TotalAmountAlt.Decimal
	}

	return domain.Order{
		ID:          p.ID,
		Number:      firstNonEmpty(p.OrderNumber, p.OrderNumberAlt),
		UserID:      p.UserID,
		Items:       items,
		TotalAmount: total,
		Status:      status,
		OrderDate:   parseDate(p.OrderDate, p.OrderDateAlt, p.CreatedAt),

		ShippingAddress: p.ShippingAddress,
		Phone:           p.Phone,
		PaymentMethod:   method,
		Notes:           p.Notes,
	}, nil
}

// decodeList accepts a bare array or an object with an "orders" array.
func decodeList(raw json.RawMessage) ([]orderPayload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []orderPayload
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped listPayload
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return wrapped.Orders, nil
}
