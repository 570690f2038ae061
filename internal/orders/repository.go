package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

var (
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrVersionConflict      = errors.New("order was modified concurrently")
)

// Repository stores each order as one document. GetByID returns nil, nil
// when the order does not exist.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	ListByStore(ctx context.Context, storeID int64) ([]domain.Order, error)
	Ping(ctx context.Context) error
}

const uniqueViolation = "23505"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, store_id, store_name, order_type, payment_method,
			status, items, total_amount, total_items, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, order.ID, order.OrderNumber, order.StoreID, order.StoreName, order.OrderType, order.PaymentMethod,
		order.Status, items, order.TotalAmount, order.TotalItems, order.CreatedAt, order.UpdatedAt, order.Version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "orders_order_number_key" {
			return ErrDuplicateOrderNumber
		}
		return err
	}

	return nil
}

const selectOrder = `
	SELECT id, order_number, store_id, store_name, order_type, payment_method,
		status, items, total_amount, total_items, created_at, updated_at, version
	FROM orders
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order domain.Order
		items []byte
	)
	err := row.Scan(&order.ID, &order.OrderNumber, &order.StoreID, &order.StoreName, &order.OrderType,
		&order.PaymentMethod, &order.Status, &items, &order.TotalAmount, &order.TotalItems,
		&order.CreatedAt, &order.UpdatedAt, &order.Version)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items of order %s: %w", order.ID, err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	return &order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return order, nil
}

// Update writes the status transition of order if the stored version still
// equals order.Version, then advances order.Version.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND version = $4
	`, order.Status, order.UpdatedAt, order.ID, order.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrVersionConflict
	}

	order.Version++
	return nil
}

func (r *OrderRepository) ListByStore(ctx context.Context, storeID int64) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+`
		WHERE store_id = $1
		ORDER BY created_at DESC
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
