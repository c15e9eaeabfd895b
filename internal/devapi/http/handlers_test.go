package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/service"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// --- Mocks ---

type cartServiceMock struct {
	cart       *service.CartView
	err        error
	gotUser    int64
	gotProduct int64
	gotQty     int
}

func (m *cartServiceMock) GetCart(_ context.Context, userID int64) (*service.CartView, error) {
	m.gotUser = userID
	return m.cart, m.err
}

func (m *cartServiceMock) AddItem(_ context.Context, userID, productID int64, quantity int) (*service.CartView, error) {
	m.gotUser, m.gotProduct, m.gotQty = userID, productID, quantity
	return m.cart, m.err
}

func (m *cartServiceMock) UpdateQuantity(_ context.Context, userID, productID int64, quantity int) (*service.CartView, error) {
	m.gotUser, m.gotProduct, m.gotQty = userID, productID, quantity
	return m.cart, m.err
}

func (m *cartServiceMock) RemoveItem(_ context.Context, userID, productID int64) (*service.CartView, error) {
	m.gotUser, m.gotProduct = userID, productID
	return m.cart, m.err
}

func (m *cartServiceMock) ClearCart(_ context.Context, userID int64) (*service.CartView, error) {
	m.gotUser = userID
	return m.cart, m.err
}

type orderServiceMock struct {
	order   *domain.Order
	orders  []domain.Order
	created bool
	err     error
	gotKey  string
	gotReq  service.CheckoutRequest
	gotNext domain.OrderStatus
	gotWho  config.Principal
}

func (m *orderServiceMock) Checkout(_ context.Context, _ int64, req service.CheckoutRequest, key string) (*domain.Order, bool, error) {
	m.gotKey, m.gotReq = key, req
	return m.order, m.created, m.err
}

func (m *orderServiceMock) List(_ context.Context, who config.Principal) ([]domain.Order, error) {
	m.gotWho = who
	return m.orders, m.err
}

func (m *orderServiceMock) Get(_ context.Context, who config.Principal, _ int64) (*domain.Order, error) {
	m.gotWho = who
	return m.order, m.err
}

func (m *orderServiceMock) Cancel(_ context.Context, who config.Principal, _ int64) (*domain.Order, error) {
	m.gotWho = who
	return m.order, m.err
}

func (m *orderServiceMock) AdvanceStatus(_ context.Context, who config.Principal, _ int64, next domain.OrderStatus) (*domain.Order, error) {
	m.gotWho, m.gotNext = who, next
	return m.order, m.err
}

// --- helpers ---

var testTokens = config.TokenTable{
	"dev-token":    {UserID: 1, Role: config.RoleCustomer},
	"seller-token": {UserID: 2, Role: config.RoleSeller},
}

func newTestRouter(carts CartService, orders OrderService, products repository.ProductRepository) http.Handler {
	reviews, _ := products.(repository.ReviewRepository)
	return NewRouter(RouterConfig{
		Carts:          carts,
		Orders:         orders,
		Products:       products,
		Reviews:        reviews,
		Tokens:         testTokens,
		HandlerTimeout: time.Second,
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func sampleCart() *service.CartView {
	return &service.CartView{
		Items: []service.CartItemView{{ID: 1, ProductID: 7, Quantity: 2, ProductName: "Sổ tay", ProductPrice: decimal.NewFromInt(150000), Subtotal: decimal.NewFromInt(300000)}},
		Summary: service.CartSummary{
			TotalItems:  2,
			TotalAmount: decimal.NewFromInt(300000),
			ItemCount:   1,
		},
	}
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:          3,
		Number:      "UM-000003",
		UserID:      1,
		Items:       []domain.OrderItem{{ProductID: 7, Name: "Sổ tay", Price: decimal.NewFromInt(150000), Quantity: 2}},
		TotalAmount: decimal.NewFromInt(300000),
		Status:      domain.OrderStatusPending,
		OrderDate:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// --- Auth ---

func TestAuth_MissingAndUnknownToken(t *testing.T) {
	h := newTestRouter(&cartServiceMock{cart: sampleCart()}, &orderServiceMock{}, nil)

	rec, env := do(t, h, http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)

	rec, env = do(t, h, http.MethodGet, "/api/cart", "stolen", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", env.Message)
}

func TestRequestID_Echoed(t *testing.T) {
	h := newTestRouter(&cartServiceMock{cart: sampleCart()}, &orderServiceMock{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

// --- Cart ---

func TestGetCart_Success(t *testing.T) {
	carts := &cartServiceMock{cart: sampleCart()}
	h := newTestRouter(carts, &orderServiceMock{}, nil)

	rec, env := do(t, h, http.MethodGet, "/api/cart", "dev-token", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, int64(1), carts.gotUser)
	data := env.Data.(map[string]any)
	summary := data["summary"].(map[string]any)
	assert.Equal(t, "300000", summary["total_amount"])
}

func TestAddItem_DefaultsQuantityAndValidates(t *testing.T) {
	carts := &cartServiceMock{cart: sampleCart()}
	h := newTestRouter(carts, &orderServiceMock{}, nil)

	rec, env := do(t, h, http.MethodPost, "/api/cart/add", "dev-token", `{"product_id":7}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Added to cart", env.Message)
	assert.Equal(t, 1, carts.gotQty)

	rec, _ = do(t, h, http.MethodPost, "/api/cart/add", "dev-token", `{"product_id":0,"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, h, http.MethodPost, "/api/cart/add", "dev-token", `{"product_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", env.Message)
}

func TestUpdateQuantity_RequiresQuantity(t *testing.T) {
	carts := &cartServiceMock{cart: sampleCart()}
	h := newTestRouter(carts, &orderServiceMock{}, nil)

	rec, _ := do(t, h, http.MethodPatch, "/api/cart/items/7", "dev-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/api/cart/items/abc", "dev-token", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/api/cart/items/7", "dev-token", `{"quantity":0}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), carts.gotProduct)
	assert.Equal(t, 0, carts.gotQty)
}

func TestCartErrors_Mapped(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not in cart", repository.ErrItemNotFound, http.StatusNotFound},
		{"unknown product", repository.ErrProductNotFound, http.StatusNotFound},
		{"stock", &service.StockError{ProductID: 7, Requested: 11, Available: 10}, http.StatusBadRequest},
		{"unavailable", service.ErrProductUnavailable, http.StatusBadRequest},
		{"internal", errors.New("mongo down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&cartServiceMock{err: tt.err}, &orderServiceMock{}, nil)

			rec, env := do(t, h, http.MethodDelete, "/api/cart/items/7", "dev-token", "")

			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, env.Success)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", env.Message)
			}
		})
	}
}

// --- Orders ---

func TestCreateOrder_CreatedAndReplayed(t *testing.T) {
	orders := &orderServiceMock{order: sampleOrder(), created: true}
	h := newTestRouter(&cartServiceMock{}, orders, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[{"product_id":7,"quantity":2}]}`))
	req.Header.Set("Authorization", "Bearer dev-token")
	req.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "abc", orders.gotKey)
	assert.False(t, orders.gotReq.KeepCart)
	var env struct {
		Data OrderResponseDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "UM-000003", env.Data.OrderNumber)
	assert.Equal(t, "Pending", env.Data.Status)
	assert.Equal(t, "2025-03-01T10:00:00Z", env.Data.OrderDate)
	require.Len(t, env.Data.Items, 1)
	assert.True(t, decimal.NewFromInt(300000).Equal(env.Data.Items[0].Subtotal))

	orders.created = false
	rec, env2 := do(t, h, http.MethodPost, "/api/orders", "dev-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order already placed", env2.Message)
}

func TestCreateOrder_DeliveryDetails(t *testing.T) {
	placed := sampleOrder()
	placed.ShippingAddress, placed.Phone, placed.PaymentMethod = "KTX khu A", "0901234567", domain.OrderPaymentBanking
	orders := &orderServiceMock{order: placed, created: true}
	h := newTestRouter(&cartServiceMock{}, orders, nil)

	body := `{"shipping_address":"KTX khu A","phone":"0901234567","payment_method":"Banking","notes":"gọi trước",
		"from_cart":false,"items":[{"product_id":7,"quantity":1}]}`
	rec, env := do(t, h, http.MethodPost, "/api/orders", "dev-token", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, service.CheckoutRequest{
		Items:           []service.CheckoutItem{{ProductID: 7, Quantity: 1}},
		ShippingAddress: "KTX khu A",
		Phone:           "0901234567",
		PaymentMethod:   "Banking",
		Notes:           "gọi trước",
		KeepCart:        true,
	}, orders.gotReq)
	data := env.Data.(map[string]any)
	assert.Equal(t, "KTX khu A", data["shipping_address"])
	assert.Equal(t, "Banking", data["payment_method"])
}

func TestCreateOrder_MissingPhone(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{err: domain.ErrMissingPhone}, nil)

	rec, env := do(t, h, http.MethodPost, "/api/orders", "dev-token", `{"shipping_address":"KTX"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "phone number is required", env.Message)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{err: service.ErrEmptyCart}, nil)

	rec, env := do(t, h, http.MethodPost, "/api/orders", "dev-token", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", env.Message)
}

func TestListOrders_WrappedList(t *testing.T) {
	orders := &orderServiceMock{orders: []domain.Order{*sampleOrder()}}
	h := newTestRouter(&cartServiceMock{}, orders, nil)

	rec, env := do(t, h, http.MethodGet, "/api/orders", "seller-token", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, config.RoleSeller, orders.gotWho.Role)
	list := env.Data.(map[string]any)["orders"].([]any)
	assert.Len(t, list, 1)
}

func TestCancelOrder_TransitionRejected(t *testing.T) {
	orders := &orderServiceMock{err: &domain.TransitionError{
		From:    domain.OrderStatusShipped,
		To:      domain.OrderStatusCancelled,
		Message: "Cannot cancel order with status Shipped",
	}}
	h := newTestRouter(&cartServiceMock{}, orders, nil)

	rec, env := do(t, h, http.MethodPatch, "/api/orders/3/cancel", "dev-token", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot cancel order with status Shipped", env.Message)
}

func TestUpdateStatus(t *testing.T) {
	orders := &orderServiceMock{order: sampleOrder()}
	h := newTestRouter(&cartServiceMock{}, orders, nil)

	rec, _ := do(t, h, http.MethodPut, "/api/orders/3/status", "seller-token", `{"status":"processing"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderStatusProcessing, orders.gotNext)

	rec, _ = do(t, h, http.MethodPut, "/api/orders/3/status", "seller-token", `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	orders.err = service.ErrForbidden
	rec, _ = do(t, h, http.MethodPut, "/api/orders/3/status", "dev-token", `{"status":"Processing"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// --- Products ---

func newCatalog(t *testing.T) *repository.SQLiteProductRepository {
	repo, err := repository.NewSQLiteProductRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestListProducts_Pagination(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))

	req := httptest.NewRequest(http.MethodGet, "/api/products?limit=4&page=2", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data ProductPageDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data.Products, 2)
	assert.Equal(t, PaginationDTO{Page: 2, Limit: 4, Total: 6, TotalPages: 2}, env.Data.Pagination)
}

func TestListProducts_BadFilter(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))

	rec, env := do(t, h, http.MethodGet, "/api/products?min_price=cheap", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "min_price must be a number", env.Message)
}

func TestProductRoutes(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))

	rec, env := do(t, h, http.MethodGet, "/api/products/featured?limit=2", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.([]any), 2)

	rec, _ = do(t, h, http.MethodGet, "/api/products/7", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/products/404", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", env.Message)

	rec, env = do(t, h, http.MethodGet, "/api/products/seller/4", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.(map[string]any)["products"].([]any), 3)

	rec, env = do(t, h, http.MethodGet, "/api/search/products?q=Varsity", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.(map[string]any)["products"].([]any), 1)

	rec, env = do(t, h, http.MethodGet, "/api/categories", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data.([]any), 3)
}

// --- Reviews ---

func TestListReviews_Pagination(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))

	req := httptest.NewRequest(http.MethodGet, "/api/reviews?product_id=1&limit=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data ReviewPageDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data.Reviews, 1)
	assert.Equal(t, "Hoodie UniMerch Classic", env.Data.Reviews[0].ProductName)
	assert.Equal(t, ReviewPaginationDTO{CurrentPage: 1, TotalPages: 2, TotalReviews: 2, HasNext: true}, env.Data.Pagination)
}

func TestListReviews_BadRating(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))

	rec, env := do(t, h, http.MethodGet, "/api/reviews?rating=9", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating must be between 1 and 5", env.Message)
}

func TestGetReview(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))

	rec, env := do(t, h, http.MethodGet, "/api/reviews/1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, env.Data.(map[string]any)["rating"])

	rec, env = do(t, h, http.MethodGet, "/api/reviews/404", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Review not found", env.Message)
}

func TestCreateReview(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))
	body := `{"product_id":7,"rating":5,"comment":" Rất tốt "}`

	rec, _ := do(t, h, http.MethodPost, "/api/reviews", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := do(t, h, http.MethodPost, "/api/reviews", "dev-token", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := env.Data.(map[string]any)
	assert.Equal(t, "Rất tốt", data["comment"])
	assert.EqualValues(t, 1, data["user_id"])
	assert.Equal(t, "Nguyễn Văn An", data["user_full_name"])

	rec, env = do(t, h, http.MethodPost, "/api/reviews", "dev-token", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "You have already reviewed this product", env.Message)
}

func TestCreateReview_Validation(t *testing.T) {
	h := newTestRouter(&cartServiceMock{}, &orderServiceMock{}, newCatalog(t))

	cases := map[string]string{
		`{"product_id":7,"rating":0,"comment":"x"}`: "rating must be between 1 and 5",
		`{"product_id":7,"rating":3,"comment":" "}`: "comment is required",
		`{"rating":3,"comment":"x"}`:                "product_id must be a positive integer",
	}
	for body, want := range cases {
		rec, env := do(t, h, http.MethodPost, "/api/reviews", "dev-token", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, want, env.Message, body)
	}

	rec, env := do(t, h, http.MethodPost, "/api/reviews", "dev-token", `{"product_id":6,"rating":3,"comment":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", env.Message)
}
