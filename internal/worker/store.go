package worker

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

// EventStore is the append-only order history.
type EventStore interface {
	// Append records event and reports false when the same event was
	// already recorded.
	Append(ctx context.Context, event domain.OrderEvent) (bool, error)
}

type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) Append(ctx context.Context, event domain.OrderEvent) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO order_events (order_id, order_number, store_id, type, status, total_amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT order_events_dedup_key DO NOTHING
	`, event.OrderID, event.OrderNumber, event.StoreID, event.Type, event.Status, event.TotalAmount, event.OccurredAt)
	if err != nil {
		return false, fmt.Errorf("insert order event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// History returns the recorded events of one order, oldest first.
func (s *PostgresEventStore) History(ctx context.Context, orderID string) ([]domain.OrderEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, order_number, store_id, type, status, total_amount, occurred_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY occurred_at, id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []domain.OrderEvent{}
	for rows.Next() {
		var event domain.OrderEvent
		if err := rows.Scan(&event.OrderID, &event.OrderNumber, &event.StoreID, &event.Type,
			&event.Status, &event.TotalAmount, &event.OccurredAt); err != nil {
			return nil, err
		}
		event.OccurredAt = event.OccurredAt.UTC()
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
