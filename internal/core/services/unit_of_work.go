package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/middleware"
)

var (
	ErrNoActiveTransaction = errors.New("unit of work has no active transaction")
	ErrUnknownSavepoint    = errors.New("unknown savepoint")
)

// EventSink receives the buffered domain events of a unit of work after its
// storage transaction has committed. The outbox service is the production
// implementation.
type EventSink interface {
	AppendEvents(ctx context.Context, events []domain.Event) error
}

// unitOfWork demarcates one atomic local transaction. It owns the storage
// transaction handle, hands it to repositories through the context returned
// by Begin, and buffers domain events until commit.
type unitOfWork struct {
	txm  portsrepo.TransactionManager
	sink EventSink

	status     portssvc.UnitOfWorkStatus
	tx         portsrepo.Tx
	events     []domain.Event
	changes    []domain.ChangeRecord
	savepoints map[string]struct{}
}

type unitOfWorkFactory struct {
	txm  portsrepo.TransactionManager
	sink EventSink
}

// NewUnitOfWorkFactory creates a factory producing unit-of-work scopes bound
// to the given transaction manager and event sink.
func NewUnitOfWorkFactory(txm portsrepo.TransactionManager, sink EventSink) portssvc.UnitOfWorkFactory {
	return &unitOfWorkFactory{txm: txm, sink: sink}
}

func (f *unitOfWorkFactory) NewUnitOfWork() portssvc.UnitOfWork {
	return &unitOfWork{
		txm:        f.txm,
		sink:       f.sink,
		status:     portssvc.UnitOfWorkNew,
		savepoints: make(map[string]struct{}),
	}
}

var _ portssvc.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) Status() portssvc.UnitOfWorkStatus {
	return u.status
}

// Begin opens the storage transaction and returns a context carrying it.
// All repository work inside the scope must use the returned context; the
// caller's context stays on the pool, so concurrent scopes are isolated.
func (u *unitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if u.status != portssvc.UnitOfWorkNew {
		return ctx, fmt.Errorf("%w: begin on %s unit of work", apperrors.ErrInvalidState, u.status)
	}
	tx, err := u.txm.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	u.tx = tx
	u.status = portssvc.UnitOfWorkActive
	return portsrepo.WithTx(ctx, tx), nil
}

func (u *unitOfWork) TrackChange(entityID, entityType string, op domain.ChangeOp) {
	u.changes = append(u.changes, domain.ChangeRecord{
		EntityID:   entityID,
		EntityType: entityType,
		Op:         op,
		TrackedAt:  time.Now().UTC(),
	})
}

func (u *unitOfWork) TrackedChanges() []domain.ChangeRecord {
	return u.changes
}

func (u *unitOfWork) AddDomainEvent(evt domain.Event) {
	u.events = append(u.events, evt)
}

func (u *unitOfWork) Savepoint(ctx context.Context, name string) error {
	if u.status != portssvc.UnitOfWorkActive {
		return fmt.Errorf("%w: savepoint requires an active transaction", ErrNoActiveTransaction)
	}
	if err := u.tx.Savepoint(ctx, name); err != nil {
		return fmt.Errorf("failed to create savepoint %q: %w", name, err)
	}
	u.savepoints[name] = struct{}{}
	return nil
}

func (u *unitOfWork) RollbackToSavepoint(ctx context.Context, name string) error {
	if u.status != portssvc.UnitOfWorkActive {
		return fmt.Errorf("%w: rollback to savepoint requires an active transaction", ErrNoActiveTransaction)
	}
	if _, ok := u.savepoints[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSavepoint, name)
	}
	if err := u.tx.RollbackToSavepoint(ctx, name); err != nil {
		return fmt.Errorf("failed to rollback to savepoint %q: %w", name, err)
	}
	return nil
}

// Commit commits the storage transaction, then hands buffered events to the
// event sink, then clears tracked state. Ordering matters: an event must
// never become visible before its cause has committed. A sink failure after
// a successful storage commit cannot be rolled back; the unit of work then
// reports UnitOfWorkCommitFailedFlush so the caller does not mistake it for
// a clean success.
func (u *unitOfWork) Commit(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if u.status != portssvc.UnitOfWorkActive {
		return fmt.Errorf("%w: commit on %s unit of work", apperrors.ErrInvalidState, u.status)
	}

	if err := u.tx.Commit(ctx); err != nil {
		// Storage commit failed: nothing is persisted and no events may leak.
		rollbackErr := u.tx.Rollback(ctx)
		u.discard()
		u.status = portssvc.UnitOfWorkRolledBack
		if rollbackErr != nil {
			logger.Error("Rollback after failed commit also failed",
				slog.String("commit_error", err.Error()),
				slog.String("rollback_error", rollbackErr.Error()))
		}
		return fmt.Errorf("failed to commit unit of work: %w", err)
	}

	if len(u.events) > 0 && u.sink != nil {
		// The transaction handle is spent; the flush must not run on it even
		// when the caller passes the scope's derived context.
		if err := u.sink.AppendEvents(portsrepo.WithoutTx(ctx), u.events); err != nil {
			u.status = portssvc.UnitOfWorkCommitFailedFlush
			logger.Error("Storage committed but event flush failed; events require manual replay",
				slog.Int("event_count", len(u.events)),
				slog.String("error", err.Error()))
			return fmt.Errorf("storage committed but event flush failed: %w", err)
		}
	}

	u.discard()
	u.status = portssvc.UnitOfWorkCommitted
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	switch u.status {
	case portssvc.UnitOfWorkActive:
		// proceed
	case portssvc.UnitOfWorkCommitted, portssvc.UnitOfWorkCommitFailedFlush:
		return fmt.Errorf("%w: rollback after commit", apperrors.ErrInvalidState)
	default:
		return fmt.Errorf("%w: rollback on %s unit of work", apperrors.ErrInvalidState, u.status)
	}

	err := u.tx.Rollback(ctx)
	u.discard()
	u.status = portssvc.UnitOfWorkRolledBack
	if err != nil {
		return fmt.Errorf("failed to rollback unit of work: %w", err)
	}
	return nil
}

// discard drops buffered events, tracked changes and savepoint names.
func (u *unitOfWork) discard() {
	u.events = nil
	u.changes = nil
	u.savepoints = make(map[string]struct{})
}
