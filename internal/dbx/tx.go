// Package dbx runs the Postgres credential source's statements inside a
// transaction.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Querier is satisfied by *sql.DB and *sql.Tx alike, so credential queries
// run the same way in and out of a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction on db and passes it to fn. A nil result
// commits. An error rolls back and is returned together with any rollback
// failure. A panic in fn rolls back and keeps unwinding.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, q Querier) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		finished = true
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	finished = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
