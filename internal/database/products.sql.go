package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, price, stock, kind, category, options, allowed_addons::text[], position, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.Stock,
		&i.Kind,
		&i.Category,
		&i.Options,
		&i.AllowedAddons,
		&i.Position,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + `
FROM products
ORDER BY kind DESC, position, name
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
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

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	return scanProduct(row)
}

const upsertProduct = `-- name: UpsertProduct :one
INSERT INTO products (id, name, price, stock, kind, category, options, allowed_addons, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::uuid[], $9)
ON CONFLICT (id) DO UPDATE SET
    name           = EXCLUDED.name,
    price          = EXCLUDED.price,
    stock          = EXCLUDED.stock,
    kind           = EXCLUDED.kind,
    category       = EXCLUDED.category,
    options        = EXCLUDED.options,
    allowed_addons = EXCLUDED.allowed_addons,
    position       = EXCLUDED.position,
    updated_at     = now()
RETURNING ` + productColumns + `
`

type UpsertProductParams struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Price         pgtype.Numeric `json:"price"`
	Stock         int32          `json:"stock"`
	Kind          string         `json:"kind"`
	Category      string         `json:"category"`
	Options       string         `json:"options"`
	AllowedAddons []string       `json:"allowed_addons"`
	Position      int32          `json:"position"`
}

func (q *Queries) UpsertProduct(ctx context.Context, arg UpsertProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, upsertProduct,
		arg.ID,
		arg.Name,
		arg.Price,
		arg.Stock,
		arg.Kind,
		arg.Category,
		arg.Options,
		arg.AllowedAddons,
		arg.Position,
	)
	return scanProduct(row)
}

const deleteProduct = `-- name: DeleteProduct :execrows
DELETE FROM products WHERE id = $1
`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const removeAllowedAddon = `-- name: RemoveAllowedAddon :exec
UPDATE products
SET allowed_addons = array_remove(allowed_addons, $1::uuid), updated_at = now()
WHERE $1::uuid = ANY(allowed_addons)
`

func (q *Queries) RemoveAllowedAddon(ctx context.Context, addonID uuid.UUID) error {
	_, err := q.db.Exec(ctx, removeAllowedAddon, addonID)
	return err
}

const updateProductStock = `-- name: UpdateProductStock :execrows
UPDATE products SET stock = $2, updated_at = now()
WHERE id = $1
`

type UpdateProductStockParams struct {
	ID    uuid.UUID `json:"id"`
	Stock int32     `json:"stock"`
}

func (q *Queries) UpdateProductStock(ctx context.Context, arg UpdateProductStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateProductStock, arg.ID, arg.Stock)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
