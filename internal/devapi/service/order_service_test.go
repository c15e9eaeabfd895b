package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

var (
	shopper = config.Principal{UserID: 1, Role: config.RoleCustomer}
	other   = config.Principal{UserID: 5, Role: config.RoleCustomer}
	seller  = config.Principal{UserID: 2, Role: config.RoleSeller}
)

func checkoutRequest(items ...CheckoutItem) CheckoutRequest {
	return CheckoutRequest{
		Items:           items,
		ShippingAddress: "268 Ly Thuong Kiet, Q10",
		Phone:           "0901234567",
		PaymentMethod:   "momo",
	}
}

func newOrderService(t *testing.T) (*OrderService, *CartService, *repository.MemoryOrderRepository) {
	t.Helper()
	products := newMockProducts()
	carts := NewCartService(repository.NewMemoryCartRepository(), products, nil, zap.NewNop())
	orders := repository.NewMemoryOrderRepository()
	return NewOrderService(orders, products, carts, zap.NewNop()), carts, orders
}

func TestCheckout_FromStoredCart(t *testing.T) {
	svc, carts, _ := newOrderService(t)
	ctx := context.Background()
	_, err := carts.AddItem(ctx, 1, 7, 2)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, 1, 8, 1)
	require.NoError(t, err)

	order, created, err := svc.Checkout(ctx, 1, checkoutRequest(), "key-1")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "UM-000001", order.Number)
	require.Len(t, order.Items, 2)
	assert.True(t, decimal.NewFromInt(40000).Equal(order.Items[1].Price))
	assert.True(t, decimal.NewFromInt(340000).Equal(order.TotalAmount))
	assert.Equal(t, "268 Ly Thuong Kiet, Q10", order.ShippingAddress)
	assert.Equal(t, domain.OrderPaymentEWallet, order.PaymentMethod)

	view, err := carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCheckout_ConsumesOnlyOrderedQuantities(t *testing.T) {
	svc, carts, _ := newOrderService(t)
	ctx := context.Background()
	_, err := carts.AddItem(ctx, 1, 7, 3)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, 1, 8, 2)
	require.NoError(t, err)

	order, _, err := svc.Checkout(ctx, 1, checkoutRequest(CheckoutItem{ProductID: 7, Quantity: 1}), "")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)

	view, err := carts.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, int64(7), view.Items[0].ProductID)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, int64(8), view.Items[1].ProductID)
	assert.Equal(t, 2, view.Items[1].Quantity)
}

func TestCheckout_KeepCart(t *testing.T) {
	svc, carts, _ := newOrderService(t)
	ctx := context.Background()
	_, err := carts.AddItem(ctx, 1, 7, 1)
	require.NoError(t, err)

	req := checkoutRequest(CheckoutItem{ProductID: 7, Quantity: 1})
	req.KeepCart = true
	_, _, err = svc.Checkout(ctx, 1, req, "")
	require.NoError(t, err)

	view, err := carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestCheckout_DeliveryDetails(t *testing.T) {
	svc, _, orders := newOrderService(t)
	ctx := context.Background()
	items := []CheckoutItem{{ProductID: 7, Quantity: 1}}

	req := checkoutRequest(items...)
	req.Phone = "  "
	_, _, err := svc.Checkout(ctx, 1, req, "")
	assert.ErrorIs(t, err, domain.ErrMissingPhone)

	req = checkoutRequest(items...)
	req.ShippingAddress = ""
	_, _, err = svc.Checkout(ctx, 1, req, "")
	assert.ErrorIs(t, err, domain.ErrMissingShippingAddress)

	req = checkoutRequest(items...)
	req.PaymentMethod = "cheque"
	_, _, err = svc.Checkout(ctx, 1, req, "")
	assert.ErrorIs(t, err, domain.ErrUnknownPaymentMethod)

	list, _ := orders.ListOrders(ctx, 0)
	assert.Empty(t, list)

	req = checkoutRequest(items...)
	req.PaymentMethod = ""
	req.Notes = "  để ở bảo vệ "
	order, _, err := svc.Checkout(ctx, 1, req, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentCOD, order.PaymentMethod)
	assert.Equal(t, "để ở bảo vệ", order.Notes)
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _, orders := newOrderService(t)

	_, _, err := svc.Checkout(context.Background(), 1, checkoutRequest(), "")

	assert.ErrorIs(t, err, ErrEmptyCart)
	list, _ := orders.ListOrders(context.Background(), 0)
	assert.Empty(t, list)
}

func TestCheckout_IdempotentRetry(t *testing.T) {
	svc, _, orders := newOrderService(t)
	ctx := context.Background()
	items := []CheckoutItem{{ProductID: 7, Quantity: 1}}

	first, created, err := svc.Checkout(ctx, 1, checkoutRequest(items...), "retry-key")
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := svc.Checkout(ctx, 1, checkoutRequest(items...), "retry-key")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	list, err := orders.ListOrders(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCheckout_RequestItemsMergedAndChecked(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()

	order, _, err := svc.Checkout(ctx, 1, checkoutRequest(CheckoutItem{ProductID: 7, Quantity: 1}, CheckoutItem{ProductID: 7, Quantity: 2}), "")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)

	_, _, err = svc.Checkout(ctx, 1, checkoutRequest(CheckoutItem{ProductID: 9, Quantity: 1}), "")
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, _, err = svc.Checkout(ctx, 1, checkoutRequest(CheckoutItem{ProductID: 404, Quantity: 1}), "")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, _, err = svc.Checkout(ctx, 1, checkoutRequest(CheckoutItem{ProductID: 7, Quantity: 0}), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = svc.Checkout(ctx, 1, checkoutRequest(CheckoutItem{ProductID: 7, Quantity: 11}), "")
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func placeOrder(t *testing.T, svc *OrderService) *domain.Order {
	t.Helper()
	order, _, err := svc.Checkout(context.Background(), shopper.UserID, checkoutRequest(CheckoutItem{ProductID: 7, Quantity: 1}), "")
	require.NoError(t, err)
	return order
}

func TestCancel_OwnerFromPending(t *testing.T) {
	svc, _, _ := newOrderService(t)
	order := placeOrder(t, svc)

	cancelled, err := svc.Cancel(context.Background(), shopper, order.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), shopper, order.ID)
	var te *domain.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Cannot cancel order with status Cancelled", te.Message)
}

func TestCancel_NotOwner(t *testing.T) {
	svc, _, _ := newOrderService(t)
	order := placeOrder(t, svc)

	_, err := svc.Cancel(context.Background(), other, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	_, err = svc.Cancel(context.Background(), seller, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancel_AfterProcessing(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)
	_, err := svc.AdvanceStatus(ctx, seller, order.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, shopper, order.ID)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestAdvanceStatus(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)

	_, err := svc.AdvanceStatus(ctx, shopper, order.ID, domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.AdvanceStatus(ctx, seller, order.ID, domain.OrderStatusDelivered)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	for _, next := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		moved, err := svc.AdvanceStatus(ctx, seller, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, moved.Status)
	}

	_, err = svc.AdvanceStatus(ctx, seller, order.ID, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.AdvanceStatus(ctx, seller, 999, domain.OrderStatusProcessing)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestListAndGet_Visibility(t *testing.T) {
	svc, _, _ := newOrderService(t)
	ctx := context.Background()
	order := placeOrder(t, svc)
	_, _, err := svc.Checkout(ctx, other.UserID, checkoutRequest(CheckoutItem{ProductID: 8, Quantity: 1}), "")
	require.NoError(t, err)

	mine, err := svc.List(ctx, shopper)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.List(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Get(ctx, other, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	got, err := svc.Get(ctx, seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}
