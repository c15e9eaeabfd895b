// Package order places and tracks orders and drives their status through
// the domain transition table.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/apiclient"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// Doer sends one API request. *apiclient.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any, opts ...apiclient.RequestOption) error
}

type Client struct {
	api    Doer
	logger *zap.Logger
	newKey func() string
}

func NewClient(api Doer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, logger: logger, newKey: uuid.NewString}
}

type createItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type createRequest struct {
	ShippingAddress string                    `json:"shipping_address"`
	Phone           string                    `json:"phone"`
	PaymentMethod   domain.OrderPaymentMethod `json:"payment_method"`
	Notes           string                    `json:"notes,omitempty"`
	FromCart        bool                      `json:"from_cart"`
	Items           []createItem              `json:"items"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// Create places an order for the lines in cart with the given delivery
// and payment details. The server removes the ordered lines from its cart;
// callers reset their local cart on success.
func (c *Client) Create(ctx context.Context, cart domain.Cart, details domain.CheckoutDetails) (domain.Order, error) {
	if cart.IsEmpty() {
		return domain.Order{}, domain.ErrEmptyCart
	}
	if err := cart.Validate(); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	details, err := details.Normalize()
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	req := createRequest{
		ShippingAddress: details.ShippingAddress,
		Phone:           details.Phone,
		PaymentMethod:   details.PaymentMethod.OrderMethod(),
		Notes:           details.Notes,
		FromCart:        true,
		Items:           make([]createItem, 0, len(cart.Items)),
	}
	for _, line := range cart.Items {
		req.Items = append(req.Items, createItem{ProductID: line.Product.ID, Quantity: line.Quantity})
	}

	key := c.newKey()
	var p orderPayload
	if err := c.api.Do(ctx, http.MethodPost, "/orders", req, &p, apiclient.WithIdempotencyKey(key)); err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	o, err := p.order()
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	if len(o.Items) == 0 {
		o.Items = domain.FreezeItems(cart)
		if !p.TotalAmount.Valid && !p.TotalAmountAlt.Valid {
			o.TotalAmount = domain.ItemsTotal(o.Items)
		}
	}
	if o.ShippingAddress == "" {
		o.ShippingAddress = req.ShippingAddress
		o.Phone = req.Phone
		o.Notes = req.Notes
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = req.PaymentMethod
	}

	c.logger.Info("order placed",
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber()),
		zap.String("idempotency_key", key))
	return o, nil
}

func (c *Client) List(ctx context.Context) ([]domain.Order, error) {
	var raw json.RawMessage
	if err := c.api.Do(ctx, http.MethodGet, "/orders", nil, &raw); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	payloads, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(payloads))
	for _, p := range payloads {
		o, err := p.order()
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (c *Client) Get(ctx context.Context, id int64) (domain.Order, error) {
	var p orderPayload
	if err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &p); err != nil {
		return domain.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return p.order()
}

// Cancel cancels an order on behalf of its owner. Only pending orders are
// cancellable; anything else fails without a request.
func (c *Client) Cancel(ctx context.Context, o domain.Order) (domain.Order, error) {
	if !o.Cancellable() {
		return domain.Order{}, &domain.TransitionError{From: o.Status, To: domain.OrderStatusCancelled}
	}
	return c.CancelByID(ctx, o.ID)
}

// CancelByID sends the cancel request without a local status check.
func (c *Client) CancelByID(ctx context.Context, id int64) (domain.Order, error) {
	var p orderPayload
	err := c.api.Do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/cancel", id), nil, &p)
	if err != nil {
		return domain.Order{}, transitionError(fmt.Sprintf("cancel order %d", id), "", domain.OrderStatusCancelled, err)
	}
	if p.ID == 0 {
		return c.Get(ctx, id)
	}
	return p.order()
}

// AdvanceStatus moves an order forward on behalf of a seller or admin.
func (c *Client) AdvanceStatus(ctx context.Context, o domain.Order, next domain.OrderStatus) (domain.Order, error) {
	if !o.Status.CanTransitionTo(next) {
		return domain.Order{}, &domain.TransitionError{From: o.Status, To: next}
	}

	var p orderPayload
	err := c.api.Do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/status", o.ID), statusRequest{Status: next}, &p)
	if err != nil {
		return domain.Order{}, transitionError(fmt.Sprintf("update order %d", o.ID), o.Status, next, err)
	}
	if p.ID == 0 {
		advanced := o
		advanced.Status = next
		return advanced, nil
	}
	return p.order()
}

// transitionError turns a server rejection into a TransitionError carrying
// the server's wording. Other failures are wrapped as they are.
func transitionError(op string, from, to domain.OrderStatus, err error) error {
	if errors.Is(err, apiclient.ErrConflict) || errors.Is(err, apiclient.ErrValidation) {
		return &domain.TransitionError{From: from, To: to, Message: apiclient.ServerMessage(err)}
	}
	return fmt.Errorf("%s: %w", op, err)
}
