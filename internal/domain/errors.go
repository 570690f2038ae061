package domain

import "net/http"

// Error is a terminal, non-retryable failure reported to the caller with its
// Kind and Message.
type Error struct {
	Kind    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrMenuNotFound = &Error{
		Kind:    "MENU_NOT_FOUND",
		Message: "menu not found",
		Status:  http.StatusNotFound,
	}
	ErrInvalidOptionID = &Error{
		Kind:    "INVALID_OPTION_ID",
		Message: "invalid option id",
		Status:  http.StatusBadRequest,
	}
	ErrOrderItemPriceMismatch = &Error{
		Kind:    "ORDER_ITEM_PRICE_MISMATCH",
		Message: "order item price does not match catalog price",
		Status:  http.StatusBadRequest,
	}
	ErrOrderTotalAmountMismatch = &Error{
		Kind:    "ORDER_TOTAL_AMOUNT_MISMATCH",
		Message: "order total amount does not match sum of items",
		Status:  http.StatusBadRequest,
	}
	ErrOrderNotFound = &Error{
		Kind:    "ORDER_NOT_FOUND",
		Message: "order not found",
		Status:  http.StatusNotFound,
	}
	ErrStoreAccessDenied = &Error{
		Kind:    "STORE_ACCESS_DENIED",
		Message: "store access denied",
		Status:  http.StatusForbidden,
	}
	ErrInvalidRequest = &Error{
		Kind:    "INVALID_REQUEST",
		Message: "invalid request",
		Status:  http.StatusBadRequest,
	}
)
