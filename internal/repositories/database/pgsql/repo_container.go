package pgsql

import (
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider constructs the full set of Postgres-backed
// repositories sharing a single connection pool.
func NewRepositoryProvider(pool *pgxpool.Pool) *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		AccountRepo: newPgxAccountRepository(pool),
		JournalRepo: newPgxJournalRepository(pool),
		OutboxRepo:  newPgxOutboxRepository(pool),
		InboxRepo:   newPgxInboxRepository(pool),
		SagaRepo:    newPgxSagaRepository(pool),
		TxManager:   NewTxManager(pool),
	}
}
