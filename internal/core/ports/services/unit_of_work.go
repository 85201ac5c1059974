package services

import (
	"context"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
)

// UnitOfWorkStatus is the lifecycle state of a unit of work.
type UnitOfWorkStatus string

const (
	UnitOfWorkNew               UnitOfWorkStatus = "NEW"
	UnitOfWorkActive            UnitOfWorkStatus = "ACTIVE"
	UnitOfWorkCommitted         UnitOfWorkStatus = "COMMITTED"
	UnitOfWorkRolledBack        UnitOfWorkStatus = "ROLLED_BACK"
	UnitOfWorkCommitFailedFlush UnitOfWorkStatus = "COMMIT_FAILED_FLUSH"
)

// UnitOfWork demarcates one atomic local transaction. It tracks entity
// mutations for observability, buffers domain events raised inside the
// scope, and guarantees that the storage commit strictly precedes event
// visibility.
type UnitOfWork interface {
	// Begin opens the transactional scope and returns a derived context
	// carrying the transaction. Repository operations performed with the
	// returned context run on the scope's connection; the transaction never
	// outlives the scope because nothing but the context refers to it.
	Begin(ctx context.Context) (context.Context, error)

	// TrackChange records a mutation for observability/debugging, not replay.
	TrackChange(entityID, entityType string, op domain.ChangeOp)

	// AddDomainEvent buffers an event for post-commit handoff to the outbox.
	AddDomainEvent(evt domain.Event)

	// Savepoint marks a named point for partial rollback within the still-
	// open transaction.
	Savepoint(ctx context.Context, name string) error

	// RollbackToSavepoint reverses work done since the named savepoint.
	RollbackToSavepoint(ctx context.Context, name string) error

	// Commit commits storage, then hands buffered events to the event sink,
	// then clears tracked state. A flush failure after a successful storage
	// commit leaves storage committed and the unit of work in
	// UnitOfWorkCommitFailedFlush.
	Commit(ctx context.Context) error

	// Rollback reverses the storage transaction and discards buffered
	// events unconditionally.
	Rollback(ctx context.Context) error

	// Status reports the current lifecycle state.
	Status() UnitOfWorkStatus

	// TrackedChanges returns the mutations recorded so far.
	TrackedChanges() []domain.ChangeRecord
}

// UnitOfWorkFactory creates fresh unit-of-work scopes.
type UnitOfWorkFactory interface {
	NewUnitOfWork() UnitOfWork
}
