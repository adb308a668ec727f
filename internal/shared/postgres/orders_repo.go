package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ecommerce-orders/internal/domain/orders"
	"ecommerce-orders/internal/ports"
)

// OrdersRepo implements persistence for orders using pgx and SQL.
type OrdersRepo struct{}

// NewOrdersRepo constructs a new OrdersRepo.
func NewOrdersRepo() ports.OrderRepository {
	return &OrdersRepo{}
}

// CreateOrder inserts the order header and its line items.
func (r *OrdersRepo) CreateOrder(ctx context.Context, order *orders.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// note: total_price is NUMERIC(10,2) in DB; we send integer cents and divide by 100 in SQL.
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (email, id, created_at, shipping_type, shipping_carrier, payment, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric/100)`,
		order.Email,
		order.ID,
		order.CreatedAt,
		order.Shipping.Type,
		order.Shipping.Carrier,
		order.Billing.Payment,
		int64(order.Billing.TotalPrice),
	)
	if err != nil {
		return err
	}

	for _, p := range order.Products {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_products (order_email, order_id, code, price)
			VALUES ($1, $2, $3, $4::numeric/100)`,
			order.Email,
			order.ID,
			p.Code,
			int64(p.Price),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetOrder retrieves one order by its (email, id) key, including its line items.
func (r *OrdersRepo) GetOrder(ctx context.Context, email, orderID string) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var order orders.Order
	err = tx.QueryRow(ctx, `
		SELECT email, id, created_at, shipping_type, shipping_carrier, payment, (total_price*100)::bigint
		FROM orders
		WHERE email = $1 AND id = $2
	`, email, orderID).Scan(
		&order.Email, &order.ID, &order.CreatedAt,
		&order.Shipping.Type, &order.Shipping.Carrier,
		&order.Billing.Payment, &order.Billing.TotalPrice,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	order.Products, err = r.listProducts(ctx, tx, email, orderID)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// OrdersByEmail returns every order of one customer, without line items.
func (r *OrdersRepo) OrdersByEmail(ctx context.Context, email string) ([]orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT email, id, created_at, shipping_type, shipping_carrier, payment, (total_price*100)::bigint
		FROM orders
		WHERE email = $1
		ORDER BY created_at
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

// AllOrders returns every stored order, without line items.
func (r *OrdersRepo) AllOrders(ctx context.Context) ([]orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT email, id, created_at, shipping_type, shipping_carrier, payment, (total_price*100)::bigint
		FROM orders
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

// DeleteOrder removes an order and returns the removed snapshot, line items included.
func (r *OrdersRepo) DeleteOrder(ctx context.Context, email, orderID string) (*orders.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// read the line items first; the cascade wipes them with the header
	products, err := r.listProducts(ctx, tx, email, orderID)
	if err != nil {
		return nil, err
	}

	var order orders.Order
	err = tx.QueryRow(ctx, `
		DELETE FROM orders
		WHERE email = $1 AND id = $2
		RETURNING email, id, created_at, shipping_type, shipping_carrier, payment, (total_price*100)::bigint
	`, email, orderID).Scan(
		&order.Email, &order.ID, &order.CreatedAt,
		&order.Shipping.Type, &order.Shipping.Carrier,
		&order.Billing.Payment, &order.Billing.TotalPrice,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	order.Products = products
	return &order, nil
}

func (r *OrdersRepo) listProducts(ctx context.Context, tx pgx.Tx, email, orderID string) ([]orders.OrderProduct, error) {
	rows, err := tx.Query(ctx, `
		SELECT code, (price*100)::bigint
		FROM order_products
		WHERE order_email = $1 AND order_id = $2
	`, email, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []orders.OrderProduct
	for rows.Next() {
		var p orders.OrderProduct
		if err := rows.Scan(&p.Code, &p.Price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanOrders(rows pgx.Rows) ([]orders.Order, error) {
	var out []orders.Order
	for rows.Next() {
		var order orders.Order
		err := rows.Scan(
			&order.Email, &order.ID, &order.CreatedAt,
			&order.Shipping.Type, &order.Shipping.Carrier,
			&order.Billing.Payment, &order.Billing.TotalPrice,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}
