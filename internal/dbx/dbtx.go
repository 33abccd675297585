// Package dbx holds the minimal database/sql surface the SQL-backed document
// store depends on.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by the Postgres document store.
// Both *sql.DB and *sql.Tx satisfy this interface, so the store can be bound
// to either.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
