package models

import (
	"time"
)

type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	CreatedAt       time.Time   `json:"created_at"`
	Total           int64       `json:"total"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	Lines           []OrderLine `json:"items"`
}

type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderDraft is everything the store needs to create an order. The id and
// creation timestamp are assigned by the store.
type OrderDraft struct {
	UserID          int64
	Total           int64
	ShippingAddress string
	Lines           []OrderLine
}

type OrderHistoryEntry struct {
	OrderID int64  `json:"pedidoId"`
	Date    string `json:"fecha"`
	Total   string `json:"valorTotal"`
}

type OrderEvent struct {
	EventID  string    `json:"event_id"`
	OrderID  int64     `json:"order_id"`
	UserID   int64     `json:"user_id"`
	Type     string    `json:"type"` // created, deleted
	Total    int64     `json:"total"`
	Occurred time.Time `json:"occurred"`
}

const (
	OrderEventCreated = "created"
	OrderEventDeleted = "deleted"
)
