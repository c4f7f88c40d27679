package domain

import "time"

// Order status values. Orders start out pending and move forward
// (confirmed, shipped, delivered) or terminate as cancelled.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderLine is a requested (product, quantity) pair, before pricing.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Order represents a placed order.
type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	OrderDate       time.Time   `json:"order_date"`
	Status          string      `json:"status"`
	TotalAmount     float64     `json:"total_amount"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	Items           []OrderItem `json:"items"`
}

// OrderItem is a single line of a placed order. Price is captured at
// purchase time so later catalog changes do not rewrite history.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Subtotal returns the line total for this item.
func (i *OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

// CanConfirm reports whether the order may transition to confirmed.
func (o *Order) CanConfirm() bool {
	return o.Status == OrderStatusPending
}

// CanCancel reports whether the order may transition to cancelled.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}
