package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxTx wraps an open pgx transaction behind the ports.Tx contract,
// including savepoint support for partial rollback.
type PgxTx struct {
	Tx pgx.Tx
}

var _ portsrepo.Tx = (*PgxTx)(nil)

func (t *PgxTx) Commit(ctx context.Context) error {
	if err := t.Tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

func (t *PgxTx) Rollback(ctx context.Context) error {
	if err := t.Tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

func (t *PgxTx) Savepoint(ctx context.Context, name string) error {
	sql := fmt.Sprintf("SAVEPOINT %s", pgx.Identifier{name}.Sanitize())
	if _, err := t.Tx.Exec(ctx, sql); err != nil {
		return apperrors.NewAppError(500, "failed to create savepoint", err)
	}
	return nil
}

func (t *PgxTx) RollbackToSavepoint(ctx context.Context, name string) error {
	sql := fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", pgx.Identifier{name}.Sanitize())
	if _, err := t.Tx.Exec(ctx, sql); err != nil {
		return apperrors.NewAppError(500, "failed to rollback to savepoint", err)
	}
	return nil
}

// TxManager opens transactions on the shared pool for unit-of-work scopes.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a TransactionManager backed by the given pool.
func NewTxManager(pool *pgxpool.Pool) portsrepo.TransactionManager {
	return &TxManager{pool: pool}
}

var _ portsrepo.TransactionManager = (*TxManager)(nil)

func (m *TxManager) Begin(ctx context.Context) (portsrepo.Tx, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return &PgxTx{Tx: tx}, nil
}
