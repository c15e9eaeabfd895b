package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

type ReviewHandler struct {
	reviews repository.ReviewRepository
	timeout time.Duration
}

func NewReviewHandler(reviews repository.ReviewRepository, timeout time.Duration) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, timeout: timeout}
}

type ReviewPaginationDTO struct {
	CurrentPage  int  `json:"current_page"`
	TotalPages   int  `json:"total_pages"`
	TotalReviews int  `json:"total_reviews"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

type ReviewPageDTO struct {
	Reviews    []domain.Review     `json:"reviews"`
	Pagination ReviewPaginationDTO `json:"pagination"`
}

type CreateReviewRequestDTO struct {
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// GET /api/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	var f repository.ReviewFilter
	for _, p := range []struct {
		name string
		dst  *int64
	}{{"product_id", &f.ProductID}, {"user_id", &f.UserID}} {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, p.name+" must be an integer")
				return
			}
			*p.dst = n
		}
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &f.Page}, {"limit", &f.Limit}, {"rating", &f.Rating}} {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, p.name+" must be an integer")
				return
			}
			*p.dst = n
		}
	}
	if f.Rating != 0 && !domain.ValidRating(f.Rating) {
		respondError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	reviews, total, err := h.reviews.ListReviews(ctx, f)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	page, limit := f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	totalPages := (total + limit - 1) / limit
	respondData(w, http.StatusOK, "", ReviewPageDTO{
		Reviews: reviews,
		Pagination: ReviewPaginationDTO{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalReviews: total,
			HasNext:      page < totalPages,
			HasPrev:      page > 1,
		},
	})
}

// GET /api/reviews/{review_id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := idParam(w, r, "review_id")
	if !ok {
		return
	}
	review, err := h.reviews.GetReview(ctx, id)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "", review)
}

// POST /api/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	who, ok := principalFrom(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateReviewRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	switch {
	case req.ProductID <= 0:
		respondError(w, http.StatusBadRequest, "product_id must be a positive integer")
		return
	case !domain.ValidRating(req.Rating):
		respondError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	case req.Comment == "":
		respondError(w, http.StatusBadRequest, "comment is required")
		return
	}

	review := &domain.Review{
		ProductID: req.ProductID,
		UserID:    who.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.reviews.CreateReview(ctx, review); err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusCreated, "Review created", review)
}
