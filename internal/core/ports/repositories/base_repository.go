package repositories

import (
	"context"
)

// Tx is the handle to an open storage transaction. Savepoints allow partial
// rollback within a still-open transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
}

// TransactionManager opens storage transactions for a unit of work.
type TransactionManager interface {
	Begin(ctx context.Context) (Tx, error)
}

type txCtxKey struct{}

// WithTx returns a context carrying the open transaction. Repositories run
// operations on the carried transaction when present, the shared pool
// otherwise. The transaction travels with the context, never with the
// repository, so concurrent scopes cannot see each other's connection.
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// WithoutTx shadows any carried transaction; operations on the derived
// context run on the shared pool again.
func WithoutTx(ctx context.Context) context.Context {
	return context.WithValue(ctx, txCtxKey{}, nil)
}

// TxFrom extracts the transaction carried by the context, if any.
func TxFrom(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(Tx)
	if !ok || tx == nil {
		return nil, false
	}
	return tx, true
}
