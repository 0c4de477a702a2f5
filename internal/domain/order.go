package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/bestdog-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending        Status = enum.OrderStatusPending
	StatusOutForDelivery Status = enum.OrderStatusOutForDelivery
	StatusCompleted      Status = enum.OrderStatusCompleted
	StatusCancelled      Status = enum.OrderStatusCancelled
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOutForDelivery, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s ends the normal fulfillment flow.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether the order is still being fulfilled.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusOutForDelivery
}

// Event is a lifecycle trigger.
type Event string

const (
	EventComplete Event = enum.OrderEventComplete
	EventCancel   Event = enum.OrderEventCancel
	EventAdvance  Event = enum.OrderEventAdvance
	EventReturn   Event = enum.OrderEventReturn
)

// Customer is a copy of the customer's contact data taken when the order is saved.
type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
}

// LineItem is one product selection in an order. Name and Price are copied
// from the catalog at selection time.
type LineItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Option    string          `json:"option,omitempty"`
	Addons    []uuid.UUID     `json:"addons,omitempty"`
}

// Clone returns a copy that shares no slices with li.
func (li LineItem) Clone() LineItem {
	li.Addons = slices.Clone(li.Addons)
	return li
}

// CloneItems deep-copies a slice of line items.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, li := range items {
		out[i] = li.Clone()
	}
	return out
}

// Draft holds the editable fields of an order as collected by the caller.
type Draft struct {
	Customer        Customer
	Items           []LineItem
	DeliveryFee     decimal.Decimal
	DiscountPercent decimal.Decimal
	PaymentMethod   string
	Notes           string
	PrepMinutes     int
	TravelMinutes   int
}

// Order is the stored, priced aggregate.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	Number          int             `json:"number"`
	Customer        Customer        `json:"customer"`
	Items           []LineItem      `json:"items"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes,omitempty"`
	Status          Status          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	PrepMinutes     int             `json:"prep_minutes"`
	TravelMinutes   int             `json:"travel_minutes"`
	CreatedAt       time.Time       `json:"created_at"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	o.Items = CloneItems(o.Items)
	return o
}

// Label is the human order number, e.g. "#12".
func (o Order) Label() string {
	return fmt.Sprintf("#%d", o.Number)
}

// DueAt is the expected delivery time: creation plus kitchen and travel estimates.
func (o Order) DueAt() time.Time {
	return o.CreatedAt.Add(time.Duration(o.PrepMinutes+o.TravelMinutes) * time.Minute)
}

// Overdue reports whether an active order with a time estimate is past DueAt.
func (o Order) Overdue(now time.Time) bool {
	if !o.Status.Active() || o.PrepMinutes+o.TravelMinutes <= 0 {
		return false
	}
	return now.After(o.DueAt())
}

// StockChange records one stock counter written by the inventory ledger.
type StockChange struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Before    int       `json:"before"`
	After     int       `json:"after"`
}

// OrderEvent is handed to notification hooks after a committed change.
type OrderEvent struct {
	Type  string        `json:"type"`
	Order Order         `json:"order"`
	Stock []StockChange `json:"stock,omitempty"`
	At    time.Time     `json:"at"`
}
