// internal/repository/db_executor.go
package repository

import (
	"context"
	"database/sql"
)

// DBExecutor is what every repository method runs on: *sqlx.DB for standalone reads, or the
// *sqlx.Tx of the ledger operation in progress. Queries are written with '?' placeholders and
// passed through Rebind, so the same SQL serves PostgreSQL and SQLite.
type DBExecutor interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	Rebind(query string) string
}
