package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type SQLiteProductRepository struct {
	db *sql.DB
}

// NewSQLiteProductRepository opens the catalog at path (":memory:" for a
// throwaway one) and applies the schema and seed data.
func NewSQLiteProductRepository(path string) (*SQLiteProductRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteProductRepository{db: db}, nil
}

const selectProduct = `
	SELECT p.id, p.name, p.description, p.price, p.discount_price, p.quantity,
	       p.image_url, p.status, p.category_id, c.name, p.seller_id, p.seller_name, p.created_at
	FROM products p
	JOIN categories c ON c.id = p.category_id`

var sortClauses = map[string]string{
	"price_asc":  "CAST(p.price AS REAL) ASC, p.id",
	"price_desc": "CAST(p.price AS REAL) DESC, p.id",
	"name_asc":   "p.name ASC, p.id",
	"name_desc":  "p.name DESC, p.id",
	"newest":     "p.created_at DESC, p.id DESC",
}

func (r *SQLiteProductRepository) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, int, error) {
	var (
		where []string
		args  []any
	)
	if f.CategoryID > 0 {
		where = append(where, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		where = append(where, "(p.name LIKE ? OR p.description LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	if f.MinPrice.Valid {
		where = append(where, "CAST(p.price AS REAL) >= ?")
		args = append(args, f.MinPrice.Decimal.InexactFloat64())
	}
	if f.MaxPrice.Valid {
		where = append(where, "CAST(p.price AS REAL) <= ?")
		args = append(args, f.MaxPrice.Decimal.InexactFloat64())
	}
	if f.SellerID > 0 {
		where = append(where, "p.seller_id = ?")
		args = append(args, f.SellerID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM products p` + clause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	order, ok := sortClauses[f.Sort]
	if !ok {
		order = "p.id"
	}
	limit, offset := pageWindow(f.Page, f.Limit)
	query := selectProduct + clause + " ORDER BY " + order + " LIMIT ? OFFSET ?"

	products, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *SQLiteProductRepository) FeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 || limit > maxPageLimit {
		limit = 8
	}
	return r.query(ctx, selectProduct+` WHERE p.featured = 1 ORDER BY p.id LIMIT ?`, limit)
}

func (r *SQLiteProductRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	products, err := r.query(ctx, selectProduct+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}
	return &products[0], nil
}

func (r *SQLiteProductRepository) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	products, err := r.query(ctx, selectProduct+` WHERE p.id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (r *SQLiteProductRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

func (r *SQLiteProductRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteProductRepository) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p      domain.Product
			status string
		)
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountPrice, &p.Quantity,
			&p.ImageURL, &status, &p.CategoryID, &p.CategoryName, &p.SellerID, &p.SellerName, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Status = domain.ProductStatus(status)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func pageWindow(page, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
