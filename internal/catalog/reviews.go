package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/leedontbeshy/unimerch-client/internal/apiclient"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrEmptyComment   = errors.New("review comment is required")
)

// ReviewFilters narrows a product's review listing. Zero values are omitted.
type ReviewFilters struct {
	Page   int
	Limit  int
	Rating int
}

func (f ReviewFilters) values(productID int64) url.Values {
	q := url.Values{"product_id": {strconv.FormatInt(productID, 10)}}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Rating > 0 {
		q.Set("rating", strconv.Itoa(f.Rating))
	}
	return q
}

type ReviewPagination struct {
	CurrentPage  int  `json:"current_page"`
	TotalPages   int  `json:"total_pages"`
	TotalReviews int  `json:"total_reviews"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

type ReviewPage struct {
	Reviews    []domain.Review  `json:"reviews"`
	Pagination ReviewPagination `json:"pagination"`
}

func (c *Client) Reviews(ctx context.Context, productID int64, f ReviewFilters) (ReviewPage, error) {
	var p ReviewPage
	err := c.api.Do(ctx, http.MethodGet, "/reviews", nil, &p, apiclient.WithQuery(f.values(productID)))
	if err != nil {
		return ReviewPage{}, fmt.Errorf("reviews for product %d: %w", productID, err)
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	return p, nil
}

func (c *Client) Review(ctx context.Context, id int64) (domain.Review, error) {
	var r domain.Review
	err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/reviews/%d", id), nil, &r)
	if errors.Is(err, apiclient.ErrNotFound) {
		return domain.Review{}, fmt.Errorf("review %d: %w", id, ErrReviewNotFound)
	}
	if err != nil {
		return domain.Review{}, fmt.Errorf("get review %d: %w", id, err)
	}
	return r, nil
}

type createReviewRequest struct {
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// WriteReview posts the signed-in user's review of a product. Invalid
// input is rejected without a request.
func (c *Client) WriteReview(ctx context.Context, productID int64, rating int, comment string) (domain.Review, error) {
	if !domain.ValidRating(rating) {
		return domain.Review{}, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return domain.Review{}, ErrEmptyComment
	}

	var r domain.Review
	req := createReviewRequest{ProductID: productID, Rating: rating, Comment: comment}
	if err := c.api.Do(ctx, http.MethodPost, "/reviews", req, &r); err != nil {
		return domain.Review{}, fmt.Errorf("review product %d: %w", productID, err)
	}
	return r, nil
}
