// Package dbx lets the SQLite blob repository run the same upsert against
// the database or inside a transaction. Batched blob writes, such as a
// conversation document stored together with its new keys, go through
// WithTx so they land all at once or not at all.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB for single blob writes and by *sql.Tx for
// batched ones.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; a panic is re-raised after the rollback, so
// no blob of a failed batch is visible afterwards.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    for k, v := range batch {
//	        if err := upsert(ctx, tx, k, v); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}
