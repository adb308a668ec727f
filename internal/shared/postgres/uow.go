package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ecommerce-orders/internal/ports"
)

// UnitOfWork runs a function inside a single DB transaction. Repositories pick
// the transaction up from the context.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork constructs a UnitOfWork over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

type txKeyType struct{}

var txKey txKeyType

// WithinTx begins a transaction, stores it in the context, runs fn, and commits
// or rolls back depending on fn's error.
func (uow *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := uow.pool.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// MustTxFromContext returns the transaction placed by WithinTx, or an error if
// the caller forgot to wrap the operation.
func MustTxFromContext(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil, errors.New("postgres: no transaction in context; wrap the call in WithinTx")
	}
	return tx, nil
}
