package models

import "time"

// AddOnType tags an add-on for display grouping on receipts.
type AddOnType string

const (
	AddOnAdd    AddOnType = "add"
	AddOnRemove AddOnType = "remove"
)

// AddOn is a modification attached to an order item.
type AddOn struct {
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	Quantity     int       `json:"quantity,omitempty"`
	Type         AddOnType `json:"type,omitempty"`
	CategoryName string    `json:"category_name,omitempty"`
	Color        string    `json:"color,omitempty"` // hex, display only
}

// EffectiveQuantity returns the add-on quantity, defaulting to 1.
func (a AddOn) EffectiveQuantity() int {
	if a.Quantity > 0 {
		return a.Quantity
	}
	return 1
}

// OrderItem is a single line of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	AddOns   []AddOn `json:"add_ons,omitempty"`
}

// Order is the inbound value consumed by the dispatch and receipt
// modules. It is owned by the calling data layer, not by this service.
type Order struct {
	OrderNumber int         `json:"order_number"`
	Timestamp   int64       `json:"timestamp"` // epoch milliseconds
	Items       []OrderItem `json:"items"`
}

// Time returns the order timestamp as a time.Time.
func (o Order) Time() time.Time {
	return time.UnixMilli(o.Timestamp)
}

// TotalItems returns the summed quantity across all items.
func (o Order) TotalItems() int {
	var n int
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
