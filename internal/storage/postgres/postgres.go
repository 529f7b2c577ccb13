// Package postgres implements the storage ports on PostgreSQL via pgx.
//
// Balances are NUMERIC columns and every balance move is a relative
// increment executed by the database, so concurrent mutations on the same
// account compose without application-level locking. Decimals cross the
// wire as text and never pass through a float.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fintrack/internal/storage"
)

// dbtx is the subset of pgxpool.Pool and pgx.Tx the queries need.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB implements storage.Store on a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool // nil when this DB is a transaction-scoped view
	q    dbtx
}

var _ storage.Store = (*DB)(nil)

// New connects to databaseURL, runs pending migrations, and returns a Store.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{pool: pool, q: pool}, nil
}

func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// InTx runs fn inside a single database transaction. A nested call joins
// the transaction already in progress.
func (d *DB) InTx(ctx context.Context, fn func(storage.Store) error) error {
	if d.pool == nil {
		return fn(d)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&DB{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// scanDecimal parses a NUMERIC value selected as text.
func scanDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("scan decimal %q: %w", s, err)
	}
	return d, nil
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
