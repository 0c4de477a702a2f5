package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_name, customer_address, customer_phone, items,
    delivery_fee, discount_percent, total, payment_method, notes, status,
    prep_minutes, travel_minutes, created_at, order_date, order_time, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.CustomerName,
		&i.CustomerAddress,
		&i.CustomerPhone,
		&i.Items,
		&i.DeliveryFee,
		&i.DiscountPercent,
		&i.Total,
		&i.PaymentMethod,
		&i.Notes,
		&i.Status,
		&i.PrepMinutes,
		&i.TravelMinutes,
		&i.CreatedAt,
		&i.OrderDate,
		&i.OrderTime,
		&i.UpdatedAt,
	)
	return i, err
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
ORDER BY order_number
`

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const insertOrder = `-- name: InsertOrder :one
INSERT INTO orders (
    id, order_number, customer_name, customer_address, customer_phone, items,
    delivery_fee, discount_percent, total, payment_method, notes, status,
    prep_minutes, travel_minutes, created_at, order_date, order_time, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
)
RETURNING ` + orderColumns + `
`

type InsertOrderParams struct {
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

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, insertOrder,
		arg.ID,
		arg.OrderNumber,
		arg.CustomerName,
		arg.CustomerAddress,
		arg.CustomerPhone,
		arg.Items,
		arg.DeliveryFee,
		arg.DiscountPercent,
		arg.Total,
		arg.PaymentMethod,
		arg.Notes,
		arg.Status,
		arg.PrepMinutes,
		arg.TravelMinutes,
		arg.CreatedAt,
		arg.OrderDate,
		arg.OrderTime,
		arg.UpdatedAt,
	)
	return scanOrder(row)
}

const updateOrder = `-- name: UpdateOrder :one
UPDATE orders SET
    customer_name    = $2,
    customer_address = $3,
    customer_phone   = $4,
    items            = $5,
    delivery_fee     = $6,
    discount_percent = $7,
    total            = $8,
    payment_method   = $9,
    notes            = $10,
    prep_minutes     = $11,
    travel_minutes   = $12,
    updated_at       = $13
WHERE id = $1
RETURNING ` + orderColumns + `
`

type UpdateOrderParams struct {
	ID              uuid.UUID      `json:"id"`
	CustomerName    string         `json:"customer_name"`
	CustomerAddress string         `json:"customer_address"`
	CustomerPhone   string         `json:"customer_phone"`
	Items           []byte         `json:"items"`
	DeliveryFee     pgtype.Numeric `json:"delivery_fee"`
	DiscountPercent pgtype.Numeric `json:"discount_percent"`
	Total           pgtype.Numeric `json:"total"`
	PaymentMethod   string         `json:"payment_method"`
	Notes           string         `json:"notes"`
	PrepMinutes     int32          `json:"prep_minutes"`
	TravelMinutes   int32          `json:"travel_minutes"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.CustomerName,
		arg.CustomerAddress,
		arg.CustomerPhone,
		arg.Items,
		arg.DeliveryFee,
		arg.DiscountPercent,
		arg.Total,
		arg.PaymentMethod,
		arg.Notes,
		arg.PrepMinutes,
		arg.TravelMinutes,
		arg.UpdatedAt,
	)
	return scanOrder(row)
}

const updateOrderStatus = `-- name: UpdateOrderStatus :execrows
UPDATE orders SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpdateOrderStatus only writes when the stored status still equals
// FromStatus; zero affected rows means another writer got there first.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateOrderStatus, arg.ID, arg.FromStatus, arg.ToStatus, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
