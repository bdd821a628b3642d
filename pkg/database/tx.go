package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx operations the repositories issue. Both
// *pgxpool.Conn and pgx.Tx satisfy it, so repository code does not care
// whether it runs inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InTransaction runs fn with every repository call in its context sharing one
// transaction on the tenant-scoped connection. An error from fn rolls the
// transaction back; a nil return commits it. A nested call joins the
// transaction already in flight.
func InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, ok := GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	if scope.tx != nil {
		return fn(ctx)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := SetTenantScope(ctx, &TenantScope{Conn: scope.Conn, tx: tx})
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
