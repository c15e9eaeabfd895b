package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

type orderLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type PostgresOrderRepository struct {
	db *sql.DB
}

// NewPostgresOrderRepository connects to dsn and applies the order schema.
func NewPostgresOrderRepository(ctx context.Context, dsn string) (*PostgresOrderRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := migratePostgres(db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresOrderRepository{db: db}, nil
}

func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *domain.Order, key string) error {
	lines := make([]orderLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, orderLine{ProductID: it.ProductID, Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	var nullableKey sql.NullString
	if key != "" {
		nullableKey = sql.NullString{String: key, Valid: true}
	}

	query := `INSERT INTO orders (user_id, idempotency_key, items, total_amount, status,
	                              shipping_address, phone, payment_method, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query,
		order.UserID,
		nullableKey,
		itemsJSON,
		order.TotalAmount,
		string(order.Status),
		order.ShippingAddress,
		order.Phone,
		string(order.PaymentMethod),
		order.Notes,
	).Scan(&order.ID, &order.OrderDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	order.Number = OrderNumber(order.ID)
	return nil
}

const selectOrder = `SELECT id, user_id, items, total_amount, status, created_at,
       shipping_address, phone, payment_method, notes FROM orders`

func (r *PostgresOrderRepository) GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+` WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
	return scanOrder(row)
}

func (r *PostgresOrderRepository) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, id))
}

func (r *PostgresOrderRepository) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID == 0 {
		rows, err = r.db.QueryContext(ctx, selectOrder+` ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, selectOrder+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetOrder(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}

func (r *PostgresOrderRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o         domain.Order
		itemsJSON []byte
		status    string
		method    string
	)
	err := row.Scan(&o.ID, &o.UserID, &itemsJSON, &o.TotalAmount, &status, &o.OrderDate,
		&o.ShippingAddress, &o.Phone, &method, &o.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	var lines []orderLine
	if err := json.Unmarshal(itemsJSON, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	o.Items = make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		o.Items = append(o.Items, domain.OrderItem{ProductID: l.ProductID, Name: l.Name, Price: l.Price, Quantity: l.Quantity})
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentMethod = domain.OrderPaymentMethod(method)
	o.Number = OrderNumber(o.ID)
	return &o, nil
}
