package pgsql

import (
	"context"

	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations shared by the pool and an open
// transaction, letting repositories run on whichever the context carries.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BaseRepository provides the shared pool for all repositories. Repositories
// hold no per-scope state; a unit-of-work transaction travels in the context,
// so concurrent scopes each resolve their own connection.
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// q returns the transaction carried by the context when inside a unit of
// work, the pool otherwise.
func (r *BaseRepository) q(ctx context.Context) Querier {
	if tx, ok := portsrepo.TxFrom(ctx); ok {
		if ptx, ok := tx.(*PgxTx); ok {
			return ptx.Tx
		}
	}
	return r.Pool
}
