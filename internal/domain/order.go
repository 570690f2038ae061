package domain

import "time"

type OrderStatus string

const (
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type OrderType string

const (
	OrderTypeStore   OrderType = "STORE"
	OrderTypeTakeout OrderType = "TAKEOUT"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeStore, OrderTypeTakeout:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodMobile PaymentMethod = "MOBILE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodMobile:
		return true
	}
	return false
}

// SelectedOption is a copy of a catalog option taken when the order was
// validated. Later catalog edits never change it.
type SelectedOption struct {
	CategoryName string `json:"optionCategoryName" bson:"option_category_name"`
	OptionName   string `json:"optionName" bson:"option_name"`
	Price        int64  `json:"optionPrice" bson:"option_price"`
}

type OrderLine struct {
	MenuID          int64            `json:"menuId" bson:"menu_id"`
	MenuName        string           `json:"menuName" bson:"menu_name"`
	BasePrice       int64            `json:"basePrice" bson:"base_price"`
	Quantity        int              `json:"quantity" bson:"quantity"`
	SelectedOptions []SelectedOption `json:"selectedOptions" bson:"selected_options"`
	LineTotal       int64            `json:"itemTotalPrice" bson:"item_total_price"`
}

// OptionPrice is the per-unit sum of the line's selected option prices.
func (l OrderLine) OptionPrice() int64 {
	var sum int64
	for _, o := range l.SelectedOptions {
		sum += o.Price
	}
	return sum
}

// Order is immutable once persisted except for the status transition done by
// Cancel.
type Order struct {
	ID            string        `bson:"_id"`
	OrderNumber   string        `bson:"order_number"`
	StoreID       int64         `bson:"store_id"`
	StoreName     string        `bson:"store_name"`
	OrderType     OrderType     `bson:"order_type"`
	PaymentMethod PaymentMethod `bson:"payment_method"`
	Status        OrderStatus   `bson:"status"`
	Items         []OrderLine   `bson:"items"`
	TotalAmount   int64         `bson:"total_amount"`
	TotalItems    int           `bson:"total_items"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
	Version       int64         `bson:"version"`
}

// Cancel returns the cancelled form of o. Only Status and UpdatedAt differ
// from the receiver; cancelling a cancelled order yields the same status.
func (o Order) Cancel(now time.Time) Order {
	next := o
	next.Status = OrderStatusCancelled
	next.UpdatedAt = now
	return next
}

type OrderLineDetail struct {
	MenuID          int64               `json:"menuId"`
	MenuName        string              `json:"menuName"`
	BasePrice       int64               `json:"basePrice"`
	SelectedOptions map[string][]string `json:"selectedOptions"`
	OptionPrice     int64               `json:"optionPrice"`
	Quantity        int                 `json:"quantity"`
	TotalPrice      int64               `json:"totalPrice"`
}

// OrderDetail is the caller-facing view of an order.
type OrderDetail struct {
	OrderID       string            `json:"orderId"`
	OrderNumber   string            `json:"orderNumber"`
	StoreID       int64             `json:"storeId"`
	StoreName     string            `json:"storeName"`
	OrderType     OrderType         `json:"orderType"`
	PaymentMethod PaymentMethod     `json:"paymentMethod"`
	Status        OrderStatus       `json:"status"`
	Items         []OrderLineDetail `json:"items"`
	TotalAmount   int64             `json:"totalAmount"`
	TotalItems    int               `json:"totalItems"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Detail groups each line's option names by category name.
func (o Order) Detail() OrderDetail {
	items := make([]OrderLineDetail, 0, len(o.Items))
	for _, line := range o.Items {
		grouped := make(map[string][]string)
		for _, opt := range line.SelectedOptions {
			grouped[opt.CategoryName] = append(grouped[opt.CategoryName], opt.OptionName)
		}
		items = append(items, OrderLineDetail{
			MenuID:          line.MenuID,
			MenuName:        line.MenuName,
			BasePrice:       line.BasePrice,
			SelectedOptions: grouped,
			OptionPrice:     line.OptionPrice(),
			Quantity:        line.Quantity,
			TotalPrice:      line.LineTotal,
		})
	}

	return OrderDetail{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		StoreID:       o.StoreID,
		StoreName:     o.StoreName,
		OrderType:     o.OrderType,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Items:         items,
		TotalAmount:   o.TotalAmount,
		TotalItems:    o.TotalItems,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
