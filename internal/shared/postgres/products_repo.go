package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
)

// ProductsRepo implements read access to the product catalog. Catalog
// administration belongs to a separate service and is not exposed here.
type ProductsRepo struct{}

// NewProductsRepo constructs a new ProductsRepo.
func NewProductsRepo() ports.ProductRepository {
	return &ProductsRepo{}
}

// ProductByID retrieves one product by id.
func (r *ProductsRepo) ProductByID(ctx context.Context, id string) (*orders.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var p orders.Product
	err = tx.QueryRow(ctx, `
		SELECT id, code, (price*100)::bigint
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Code, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrProductsNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductsByIDs returns the subset of requested products that exist. Callers
// must compare cardinality against the request.
func (r *ProductsRepo) ProductsByIDs(ctx context.Context, ids []string) ([]orders.Product, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, code, (price*100)::bigint
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
