package http

import (
	"context"
	"net/http"
	"time"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/service"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*service.CartView, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*service.CartView, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*service.CartView, error)
	RemoveItem(ctx context.Context, userID, productID int64) (*service.CartView, error)
	ClearCart(ctx context.Context, userID int64) (*service.CartView, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{carts: carts, timeout: timeout}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	who, _ := principalFrom(ctx)
	cart, err := h.carts.GetCart(ctx, who.UserID)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "", cart)
}

// POST /api/cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "product_id must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	who, _ := principalFrom(ctx)
	cart, err := h.carts.AddItem(ctx, who.UserID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusCreated, "Added to cart", cart)
}

// PATCH /api/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	who, _ := principalFrom(ctx)
	cart, err := h.carts.UpdateQuantity(ctx, who.UserID, productID, *req.Quantity)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "Cart updated", cart)
}

// DELETE /api/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}

	who, _ := principalFrom(ctx)
	cart, err := h.carts.RemoveItem(ctx, who.UserID, productID)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "Removed from cart", cart)
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	who, _ := principalFrom(ctx)
	cart, err := h.carts.ClearCart(ctx, who.UserID)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "Cart cleared", cart)
}
