package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/service"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
	"github.com/leedontbeshy/unimerch-client/pkg/logger"
)

const maxRequestBodySize = 1 << 20

// Envelope wraps every response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Envelope{Success: false, Message: message})
}

// handleServiceError maps service and repository errors to HTTP statuses.
// Client errors carry their own text; anything else is logged and hidden.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var te *domain.TransitionError
	switch {
	case errors.As(err, &te):
		respondError(w, http.StatusBadRequest, te.Error())
	case errors.Is(err, repository.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "Product not found in cart")
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrReviewNotFound):
		respondError(w, http.StatusNotFound, "Review not found")
	case errors.Is(err, repository.ErrDuplicateReview):
		respondError(w, http.StatusConflict, "You have already reviewed this product")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, repository.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "Cart not found")
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidIdempotency),
		errors.Is(err, domain.ErrMissingPhone),
		errors.Is(err, domain.ErrMissingShippingAddress),
		errors.Is(err, domain.ErrUnknownPaymentMethod):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		logger.FromContext(ctx).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeBody reads an optional JSON body. An empty body leaves dst as is.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
