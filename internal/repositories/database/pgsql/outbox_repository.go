package pgsql

import (
	"context"
	"time"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxOutboxRepository struct {
	BaseRepository
}

// newPgxOutboxRepository creates a new repository for staged outbox events.
func newPgxOutboxRepository(pool *pgxpool.Pool) portsrepo.OutboxRepositoryFacade {
	return &PgxOutboxRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.OutboxRepositoryFacade = (*PgxOutboxRepository)(nil)

func (r *PgxOutboxRepository) SaveEvent(ctx context.Context, event domain.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (event_id, aggregate_id, aggregate_type, event_type, payload, version, status, retry_count, error_message, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.q(ctx).Exec(ctx, query,
		event.EventID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		event.Payload,
		event.Version,
		string(event.Status),
		event.RetryCount,
		event.ErrorMessage,
		event.CreatedAt,
		event.ProcessedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert outbox event "+event.EventID, err)
	}
	return nil
}

// FindPendingEvents returns pending events in creation order. Outside an
// explicit transaction the SKIP LOCKED row locks last only for the statement,
// so concurrent dispatchers can still pick overlapping batches; duplicate
// publishes are tolerated because consumers dedup through the inbox.
func (r *PgxOutboxRepository) FindPendingEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `
		SELECT event_id, aggregate_id, aggregate_type, event_type, payload, version, status, retry_count, error_message, created_at, processed_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED;
	`
	rows, err := r.q(ctx).Query(ctx, query, string(domain.OutboxPending), limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query pending outbox events", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(
			&e.EventID,
			&e.AggregateID,
			&e.AggregateType,
			&e.EventType,
			&e.Payload,
			&e.Version,
			&e.Status,
			&e.RetryCount,
			&e.ErrorMessage,
			&e.CreatedAt,
			&e.ProcessedAt,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan outbox event row", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read outbox event rows", err)
	}
	return events, nil
}

func (r *PgxOutboxRepository) MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = $2, error_message = ''
		WHERE event_id = $3;
	`
	_, err := r.q(ctx).Exec(ctx, query, string(domain.OutboxProcessed), processedAt, eventID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark outbox event processed "+eventID, err)
	}
	return nil
}

// RecordFailure increments the retry counter and stores the delivery error.
// When permanent is true the event is moved to FAILED and leaves the retry
// schedule.
func (r *PgxOutboxRepository) RecordFailure(ctx context.Context, eventID string, errMsg string, permanent bool) error {
	status := domain.OutboxPending
	if permanent {
		status = domain.OutboxFailed
	}
	query := `
		UPDATE outbox_events
		SET status = $1, retry_count = retry_count + 1, error_message = $2
		WHERE event_id = $3;
	`
	_, err := r.q(ctx).Exec(ctx, query, string(status), errMsg, eventID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to record outbox failure for "+eventID, err)
	}
	return nil
}
