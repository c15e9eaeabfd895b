package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviews_EncodesFilters(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) any {
		assert.Equal(t, "/api/reviews", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "7", q.Get("product_id"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "5", q.Get("rating"))
		assert.False(t, q.Has("limit"))

		return map[string]any{
			"reviews": []map[string]any{
				{"id": 3, "product_id": 7, "user_full_name": "Nguyen Van A", "rating": 5, "comment": "Vải đẹp"},
			},
			"pagination": map[string]any{
				"current_page": 2, "total_pages": 3, "total_reviews": 11, "has_next": true, "has_prev": true,
			},
		}
	})

	page, err := c.Reviews(context.Background(), 7, ReviewFilters{Page: 2, Rating: 5})

	require.NoError(t, err)
	require.Len(t, page.Reviews, 1)
	assert.Equal(t, "Nguyen Van A", page.Reviews[0].UserFullName)
	assert.Equal(t, 11, page.Pagination.TotalReviews)
	assert.True(t, page.Pagination.HasNext)
}

func TestReviews_NilListBecomesEmpty(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) any {
		return map[string]any{"reviews": nil}
	})

	page, err := c.Reviews(context.Background(), 1, ReviewFilters{})

	require.NoError(t, err)
	assert.NotNil(t, page.Reviews)
}

func TestReview_NotFound(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) any {
		assert.Equal(t, "/api/reviews/99", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return nil
	})

	_, err := c.Review(context.Background(), 99)

	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestWriteReview(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) any {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reviews", r.URL.Path)
		var req createReviewRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, createReviewRequest{ProductID: 4, Rating: 4, Comment: "Ổn"}, req)
		return map[string]any{"id": 12, "product_id": 4, "rating": 4, "comment": "Ổn"}
	})

	review, err := c.WriteReview(context.Background(), 4, 4, "  Ổn ")

	require.NoError(t, err)
	assert.EqualValues(t, 12, review.ID)
}

func TestWriteReview_InvalidInputMakesNoCall(t *testing.T) {
	calls := 0
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) any {
		calls++
		return map[string]any{}
	})

	_, err := c.WriteReview(context.Background(), 4, 0, "ok")
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = c.WriteReview(context.Background(), 4, 5, "   ")
	assert.ErrorIs(t, err, ErrEmptyComment)

	assert.Zero(t, calls)
}
