package repositories

import (
	"context"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
)

// OutboxRepositoryFacade defines persistence operations for outbox events.
// SaveEvent must run on the unit-of-work transaction when one is bound so
// the event commits atomically with the business write it describes.
type OutboxRepositoryFacade interface {
	SaveEvent(ctx context.Context, event domain.OutboxEvent) error

	// FindPendingEvents returns pending events oldest-created-first, bounded
	// by limit.
	FindPendingEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error)

	// MarkProcessed transitions an event to PROCESSED.
	MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error

	// RecordFailure increments the retry count and stores the error; when
	// permanent is true the event transitions to FAILED and leaves the retry
	// schedule.
	RecordFailure(ctx context.Context, eventID string, errMsg string, permanent bool) error
}

// InboxRepositoryFacade defines persistence operations for inbox messages.
// Non-DUPLICATE rows double as the durable dedup set: a broker id counts as
// seen from the moment its first copy lands, not only once it is processed.
type InboxRepositoryFacade interface {
	SaveMessage(ctx context.Context, msg domain.InboxMessage) error

	// IsKnown reports whether a non-DUPLICATE row for this broker id already
	// exists, whatever its processing state.
	IsKnown(ctx context.Context, messageID string) (bool, error)

	// FindPendingMessages returns pending messages oldest-received-first,
	// bounded by limit.
	FindPendingMessages(ctx context.Context, limit int) ([]domain.InboxMessage, error)

	MarkProcessed(ctx context.Context, id string, processedAt time.Time) error

	// RecordFailure increments the retry count and stores the error; when
	// permanent is true the message transitions to FAILED.
	RecordFailure(ctx context.Context, id string, errMsg string, permanent bool) error
}
