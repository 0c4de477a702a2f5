package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Product struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Price         pgtype.Numeric `json:"price"`
	Stock         int32          `json:"stock"`
	Kind          string         `json:"kind"`
	Category      string         `json:"category"`
	Options       string         `json:"options"`
	AllowedAddons []string       `json:"allowed_addons"`
	Position      int32          `json:"position"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type Order struct {
	ID              uuid.UUID      `json:"id"`
	OrderNumber     int32          `json:"order_number"`
	CustomerName    string         `json:"customer_name"`
	CustomerAddress string         `json:"customer_address"`
	CustomerPhone   string         `json:"customer_phone"`
	Items           []byte         `json:"items"`
	DeliveryFee     pgtype.Numeric `json:"delivery_fee"`
	DiscountPercent pgtype.Numeric `json:"discount_percent"`
	Total           pgtype.Numeric `json:"total"`
	PaymentMethod   string         `json:"payment_method"`
	Notes           string         `json:"notes"`
	Status          string         `json:"status"`
	PrepMinutes     int32          `json:"prep_minutes"`
	TravelMinutes   int32          `json:"travel_minutes"`
	CreatedAt       time.Time      `json:"created_at"`
	OrderDate       string         `json:"order_date"`
	OrderTime       string         `json:"order_time"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
