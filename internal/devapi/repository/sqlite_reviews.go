package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// Product pages load every review at once to build the rating summary.
const maxReviewLimit = 1000

const selectReview = `
	SELECT r.id, r.product_id, p.name, r.user_id, COALESCE(u.username, ''), COALESCE(u.full_name, ''),
	       r.rating, r.comment, r.created_at
	FROM reviews r
	JOIN products p ON p.id = r.product_id
	LEFT JOIN users u ON u.id = r.user_id`

func (r *SQLiteProductRepository) ListReviews(ctx context.Context, f ReviewFilter) ([]domain.Review, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ProductID > 0 {
		where = append(where, "r.product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.UserID > 0 {
		where = append(where, "r.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Rating > 0 {
		where = append(where, "r.rating = ?")
		args = append(args, f.Rating)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews r`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	limit, offset := reviewWindow(f.Page, f.Limit)
	query := selectReview + clause + " ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?"
	reviews, err := r.queryReviews(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *SQLiteProductRepository) GetReview(ctx context.Context, id int64) (*domain.Review, error) {
	reviews, err := r.queryReviews(ctx, selectReview+` WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, ErrReviewNotFound
	}
	return &reviews[0], nil
}

func (r *SQLiteProductRepository) CreateReview(ctx context.Context, review *domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = ?)`, review.ProductID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}

	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE product_id = ? AND user_id = ?)`,
		review.ProductID, review.UserID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check review: %w", err)
	}
	if exists {
		return ErrDuplicateReview
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reviews (product_id, user_id, rating, comment) VALUES (?, ?, ?, ?)`,
		review.ProductID, review.UserID, review.Rating, review.Comment,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read review id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review: %w", err)
	}

	stored, err := r.GetReview(ctx, id)
	if err != nil {
		return err
	}
	*review = *stored
	return nil
}

func (r *SQLiteProductRepository) queryReviews(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		err := rows.Scan(
			&rv.ID, &rv.ProductID, &rv.ProductName, &rv.UserID, &rv.Username, &rv.UserFullName,
			&rv.Rating, &rv.Comment, &rv.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return reviews, nil
}

func reviewWindow(page, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxReviewLimit {
		limit = maxReviewLimit
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
