package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

const maxIdempotencyKey = 128

var tracer = otel.Tracer("github.com/leedontbeshy/unimerch-client/internal/devapi/service")

type CheckoutItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CheckoutRequest struct {
	// Items are ordered as given. Empty means the stored cart.
	Items           []CheckoutItem
	ShippingAddress string
	Phone           string
	// PaymentMethod is an order method label or a checkout method id.
	PaymentMethod string
	Notes         string
	// KeepCart leaves the stored cart alone. Otherwise the ordered
	// quantities are taken out of it.
	KeepCart bool
}

// CartLines is the part of CartService checkout needs.
type CartLines interface {
	Lines(ctx context.Context, userID int64) ([]repository.CartLine, error)
	Consume(ctx context.Context, userID int64, items []CheckoutItem) error
}

type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	carts    CartLines
	logger   *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, carts CartLines, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{orders: orders, products: products, carts: carts, logger: logger}
}

// Checkout turns the request items, or the user's stored cart when there
// are none, into a Pending order priced at current effective prices, then
// takes the ordered quantities out of the cart. A repeated idempotency key
// returns the order it created first with created set to false.
func (s *OrderService) Checkout(ctx context.Context, userID int64, req CheckoutRequest, key string) (order *domain.Order, created bool, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.Checkout")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.Bool("order.created", created))
		}
		span.End()
	}()

	if len(key) > maxIdempotencyKey {
		return nil, false, ErrInvalidIdempotency
	}
	if key != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, userID, key)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, false, err
		}
	}

	address := strings.TrimSpace(req.ShippingAddress)
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, false, domain.ErrMissingPhone
	}
	if address == "" {
		return nil, false, domain.ErrMissingShippingAddress
	}
	method, err := domain.ParseOrderPaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, false, err
	}

	items := req.Items
	if len(items) == 0 {
		lines, err := s.carts.Lines(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		for _, line := range lines {
			items = append(items, CheckoutItem{ProductID: line.ProductID, Quantity: line.Quantity})
		}
	}
	if len(items) == 0 {
		return nil, false, ErrEmptyCart
	}

	frozen, err := s.freeze(ctx, items)
	if err != nil {
		return nil, false, err
	}
	order = &domain.Order{
		UserID:          userID,
		Items:           frozen,
		TotalAmount:     domain.ItemsTotal(frozen),
		Status:          domain.OrderStatusPending,
		ShippingAddress: address,
		Phone:           phone,
		PaymentMethod:   method,
		Notes:           strings.TrimSpace(req.Notes),
	}

	if err := s.orders.CreateOrder(ctx, order, key); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			existing, getErr := s.orders.GetByIdempotencyKey(ctx, userID, key)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create order: %w", err)
	}

	if !req.KeepCart {
		ordered := make([]CheckoutItem, 0, len(frozen))
		for _, it := range frozen {
			ordered = append(ordered, CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		if err := s.carts.Consume(ctx, userID, ordered); err != nil {
			s.logger.Error("failed to consume cart after checkout",
				zap.Int64("user_id", userID), zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	s.logger.Info("order created",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.Number),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.TotalAmount.String()))
	return order, true, nil
}

// freeze merges repeated products and prices every line.
func (s *OrderService) freeze(ctx context.Context, items []CheckoutItem) ([]domain.OrderItem, error) {
	merged := make([]CheckoutItem, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, ErrInvalidQuantity)
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}

	ids := make([]int64, 0, len(merged))
	for _, it := range merged {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}

	frozen := make([]domain.OrderItem, 0, len(merged))
	for _, it := range merged {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, repository.ErrProductNotFound)
		}
		if p.Status != domain.ProductStatusAvailable {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, ErrProductUnavailable)
		}
		if it.Quantity > p.Quantity {
			return nil, &StockError{ProductID: p.ID, Requested: it.Quantity, Available: p.Quantity}
		}
		frozen = append(frozen, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Ref().EffectivePrice(),
			Quantity:  it.Quantity,
		})
	}
	return frozen, nil
}

// List returns the caller's orders. Sellers and admins see every order.
func (s *OrderService) List(ctx context.Context, who config.Principal) ([]domain.Order, error) {
	if who.IsStaff() {
		return s.orders.ListOrders(ctx, 0)
	}
	return s.orders.ListOrders(ctx, who.UserID)
}

// Get hides other users' orders behind ErrOrderNotFound.
func (s *OrderService) Get(ctx context.Context, who config.Principal, id int64) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != who.UserID && !who.IsStaff() {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// Cancel cancels a Pending order on behalf of its owner.
func (s *OrderService) Cancel(ctx context.Context, who config.Principal, id int64) (*domain.Order, error) {
	order, err := s.Get(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != who.UserID {
		return nil, ErrForbidden
	}
	if !order.Cancellable() {
		return nil, &domain.TransitionError{
			From:    order.Status,
			To:      domain.OrderStatusCancelled,
			Message: fmt.Sprintf("Cannot cancel order with status %s", order.Status),
		}
	}
	return s.move(ctx, order, domain.OrderStatusCancelled)
}

// AdvanceStatus moves an order along the transition table. Only sellers and
// admins may call it.
func (s *OrderService) AdvanceStatus(ctx context.Context, who config.Principal, id int64, next domain.OrderStatus) (*domain.Order, error) {
	if !who.IsStaff() {
		return nil, ErrForbidden
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, &domain.TransitionError{
			From:    order.Status,
			To:      next,
			Message: fmt.Sprintf("Cannot change order status from %s to %s", order.Status, next),
		}
	}
	return s.move(ctx, order, next)
}

func (s *OrderService) move(ctx context.Context, order *domain.Order, next domain.OrderStatus) (*domain.Order, error) {
	from := order.Status
	ctx, span := tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.from", from.String()),
		attribute.String("order.to", next.String()))

	err := s.orders.UpdateStatus(ctx, order.ID, from, next)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, &domain.TransitionError{
			From:    from,
			To:      next,
			Message: "Order status changed, please reload the order",
		}
	}
	if err != nil {
		return nil, err
	}

	order.Status = next
	s.logger.Info("order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", from.String()),
		zap.String("to", next.String()))
	return order, nil
}
