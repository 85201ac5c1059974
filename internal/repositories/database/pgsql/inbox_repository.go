package pgsql

import (
	"context"
	"time"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxInboxRepository struct {
	BaseRepository
}

// newPgxInboxRepository creates a new repository for inbound broker messages.
func newPgxInboxRepository(pool *pgxpool.Pool) portsrepo.InboxRepositoryFacade {
	return &PgxInboxRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.InboxRepositoryFacade = (*PgxInboxRepository)(nil)

func (r *PgxInboxRepository) SaveMessage(ctx context.Context, msg domain.InboxMessage) error {
	query := `
		INSERT INTO inbox_messages (id, message_id, source, event_type, payload, status, retry_count, error_message, received_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.q(ctx).Exec(ctx, query,
		msg.ID,
		msg.MessageID,
		msg.Source,
		msg.EventType,
		msg.Payload,
		string(msg.Status),
		msg.RetryCount,
		msg.ErrorMessage,
		msg.ReceivedAt,
		msg.ProcessedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert inbox message "+msg.ID, err)
	}
	return nil
}

// IsKnown reports whether any non-duplicate row exists for this broker id,
// regardless of processing state. A redelivery that arrives while the first
// copy is still pending must not produce a second workable row.
func (r *PgxInboxRepository) IsKnown(ctx context.Context, messageID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM inbox_messages
			WHERE message_id = $1 AND status <> $2
		);
	`
	var exists bool
	err := r.q(ctx).QueryRow(ctx, query, messageID, string(domain.InboxDuplicate)).Scan(&exists)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to check inbox dedup for "+messageID, err)
	}
	return exists, nil
}

func (r *PgxInboxRepository) FindPendingMessages(ctx context.Context, limit int) ([]domain.InboxMessage, error) {
	query := `
		SELECT id, message_id, source, event_type, payload, status, retry_count, error_message, received_at, processed_at
		FROM inbox_messages
		WHERE status = $1
		ORDER BY received_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED;
	`
	rows, err := r.q(ctx).Query(ctx, query, string(domain.InboxPending), limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query pending inbox messages", err)
	}
	defer rows.Close()

	var messages []domain.InboxMessage
	for rows.Next() {
		var m domain.InboxMessage
		if err := rows.Scan(
			&m.ID,
			&m.MessageID,
			&m.Source,
			&m.EventType,
			&m.Payload,
			&m.Status,
			&m.RetryCount,
			&m.ErrorMessage,
			&m.ReceivedAt,
			&m.ProcessedAt,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan inbox message row", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read inbox message rows", err)
	}
	return messages, nil
}

func (r *PgxInboxRepository) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	query := `
		UPDATE inbox_messages
		SET status = $1, processed_at = $2, error_message = ''
		WHERE id = $3;
	`
	_, err := r.q(ctx).Exec(ctx, query, string(domain.InboxProcessed), processedAt, id)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark inbox message processed "+id, err)
	}
	return nil
}

func (r *PgxInboxRepository) RecordFailure(ctx context.Context, id string, errMsg string, permanent bool) error {
	status := domain.InboxPending
	if permanent {
		status = domain.InboxFailed
	}
	query := `
		UPDATE inbox_messages
		SET status = $1, retry_count = retry_count + 1, error_message = $2
		WHERE id = $3;
	`
	_, err := r.q(ctx).Exec(ctx, query, string(status), errMsg, id)
	if err != nil {
		return apperrors.NewAppError(500, "failed to record inbox failure for "+id, err)
	}
	return nil
}
