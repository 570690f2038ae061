package domain

import "time"

type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "order.created"
	OrderEventCancelled OrderEventType = "order.cancelled"
)

type OrderEvent struct {
	Type        OrderEventType `json:"type"`
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	StoreID     int64          `json:"storeId"`
	Status      OrderStatus    `json:"status"`
	TotalAmount int64          `json:"totalAmount"`
	OccurredAt  time.Time      `json:"occurredAt"`
}

func NewOrderEvent(t OrderEventType, o Order) OrderEvent {
	return OrderEvent{
		Type:        t,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		StoreID:     o.StoreID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  o.UpdatedAt,
	}
}
