package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
	"github.com/joao-fontenele/kiosk-orders/internal/messaging"
)

// HistoryHandler appends consumed order events to the order history.
type HistoryHandler struct {
	store  EventStore
	logger *slog.Logger
}

func NewHistoryHandler(store EventStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger,
	}
}

// Handle is a messaging.HandlerFunc. Payloads that can never be recorded are
// reported as messaging.ErrSkipMessage; store failures are returned as is so
// the message is redelivered.
func (h *HistoryHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %v: %w", err, messaging.ErrSkipMessage)
	}

	if err := validate(event); err != nil {
		return fmt.Errorf("%v: %w", err, messaging.ErrSkipMessage)
	}

	inserted, err := h.store.Append(ctx, event)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record order event", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("record order event: %w", err)
	}

	if !inserted {
		h.logger.InfoContext(ctx, "duplicate order event ignored",
			"order_id", event.OrderID, "event_type", event.Type)
		return nil
	}

	h.logger.InfoContext(ctx, "order event recorded",
		"order_id", event.OrderID,
		"order_number", event.OrderNumber,
		"event_type", event.Type,
		"store_id", event.StoreID,
	)
	return nil
}

func validate(event domain.OrderEvent) error {
	switch event.Type {
	case domain.OrderEventCreated, domain.OrderEventCancelled:
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	if event.OrderID == "" {
		return fmt.Errorf("event %s has no order id", event.Type)
	}

	if event.OccurredAt.IsZero() {
		return fmt.Errorf("event %s of order %s has no timestamp", event.Type, event.OrderID)
	}

	return nil
}
