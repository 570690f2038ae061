package pricing

import (
	"fmt"

	"github.com/joao-fontenele/kiosk-orders/internal/domain"
)

// ReconcileLine recomputes a line total from catalog prices and compares it
// with the client's figure. The client value is never corrected, and a total
// that does not fit in an int64 is a mismatch.
func ReconcileLine(snapshot domain.MenuItemSnapshot, quantity int, options []domain.SelectedOption, clientLineTotal int64) (int64, error) {
	unit := snapshot.BasePrice
	for _, o := range options {
		var ok bool
		if unit, ok = addInt64(unit, o.Price); !ok {
			return 0, fmt.Errorf("menu %d: unit price overflows: %w", snapshot.ID, domain.ErrOrderItemPriceMismatch)
		}
	}

	computed, ok := mulInt64(unit, int64(quantity))
	if !ok {
		return 0, fmt.Errorf("menu %d: unit price %d times quantity %d overflows: %w",
			snapshot.ID, unit, quantity, domain.ErrOrderItemPriceMismatch)
	}

	if computed != clientLineTotal {
		return 0, fmt.Errorf("menu %d: computed %d, client %d: %w",
			snapshot.ID, computed, clientLineTotal, domain.ErrOrderItemPriceMismatch)
	}

	return computed, nil
}

func ReconcileOrder(lines []domain.OrderLine, clientOrderTotal int64) (int64, error) {
	var computed int64
	for _, line := range lines {
		var ok bool
		if computed, ok = addInt64(computed, line.LineTotal); !ok {
			return 0, fmt.Errorf("order total overflows: %w", domain.ErrOrderTotalAmountMismatch)
		}
	}

	if computed != clientOrderTotal {
		return 0, fmt.Errorf("computed %d, client %d: %w",
			computed, clientOrderTotal, domain.ErrOrderTotalAmountMismatch)
	}

	return computed, nil
}
