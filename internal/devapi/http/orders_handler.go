package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/service"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

type OrderService interface {
	Checkout(ctx context.Context, userID int64, req service.CheckoutRequest, key string) (*domain.Order, bool, error)
	List(ctx context.Context, who config.Principal) ([]domain.Order, error)
	Get(ctx context.Context, who config.Principal, id int64) (*domain.Order, error)
	Cancel(ctx context.Context, who config.Principal, id int64) (*domain.Order, error)
	AdvanceStatus(ctx context.Context, who config.Principal, id int64, next domain.OrderStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout}
}

type CreateOrderRequestDTO struct {
	Items           []service.CheckoutItem `json:"items"`
	ShippingAddress string                 `json:"shipping_address"`
	Phone           string                 `json:"phone"`
	PaymentMethod   string                 `json:"payment_method"`
	Notes           string                 `json:"notes"`
	// FromCart false orders the items without touching the cart.
	FromCart *bool `json:"from_cart"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type OrderItemDTO struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderResponseDTO struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Items       []OrderItemDTO  `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	OrderDate   string          `json:"order_date"`

	ShippingAddress string `json:"shipping_address"`
	Phone           string `json:"phone"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes,omitempty"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal(),
		})
	}
	return OrderResponseDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber(),
		UserID:      o.UserID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		Status:      o.Status.String(),
		OrderDate:   o.OrderDate.UTC().Format(time.RFC3339),

		ShippingAddress: o.ShippingAddress,
		Phone:           o.Phone,
		PaymentMethod:   string(o.PaymentMethod),
		Notes:           o.Notes,
	}
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateOrderRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}

	who, _ := principalFrom(ctx)
	checkout := service.CheckoutRequest{
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		KeepCart:        req.FromCart != nil && !*req.FromCart,
	}
	order, created, err := h.orders.Checkout(ctx, who.UserID, checkout, r.Header.Get("Idempotency-Key"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	if !created {
		respondData(w, http.StatusOK, "Order already placed", convertOrder(order))
		return
	}
	respondData(w, http.StatusCreated, "Order placed", convertOrder(order))
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	who, _ := principalFrom(ctx)
	orders, err := h.orders.List(ctx, who)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, convertOrder(&orders[i]))
	}
	respondData(w, http.StatusOK, "", map[string]any{"orders": dtos})
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := idParam(w, r, "order_id")
	if !ok {
		return
	}
	who, _ := principalFrom(ctx)
	order, err := h.orders.Get(ctx, who, id)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "", convertOrder(order))
}

// PATCH /api/orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := idParam(w, r, "order_id")
	if !ok {
		return
	}
	who, _ := principalFrom(ctx)
	order, err := h.orders.Cancel(ctx, who, id)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "Order cancelled", convertOrder(order))
}

// PUT /api/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := idParam(w, r, "order_id")
	if !ok {
		return
	}
	var req UpdateStatusRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	who, _ := principalFrom(ctx)
	order, err := h.orders.AdvanceStatus(ctx, who, id, next)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "Order status updated", convertOrder(order))
}
