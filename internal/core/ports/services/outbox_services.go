package services

import (
	"context"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
)

// OutboxSvcFacade stages events for reliable broker delivery.
type OutboxSvcFacade interface {
	// AddEvent persists a PENDING outbox event. When the outbox repository
	// is bound to a unit-of-work transaction the row commits atomically with
	// the business write it describes.
	AddEvent(ctx context.Context, aggregateID, aggregateType, eventType string, payload []byte, version int) error

	// DispatchOnce runs one dispatcher sweep: fetch pending events oldest
	// first and attempt a broker publish per event. Publish failures for one
	// event never block others in the same sweep. Returns the number of
	// events published.
	DispatchOnce(ctx context.Context) (int, error)

	// Run polls DispatchOnce on the configured interval until ctx is done.
	Run(ctx context.Context)
}

// InboxHandler processes one deduplicated inbox message. Handlers must be
// idempotent: the dedup guarantee holds at the transport boundary only.
type InboxHandler func(ctx context.Context, msg domain.InboxMessage) error

// InboxSvcFacade deduplicates and retries delivery of broker messages
// before handing them to projection handlers.
type InboxSvcFacade interface {
	// ReceiveMessage records an inbound message. A message whose broker id
	// has already been processed is recorded as DUPLICATE and returned
	// without invoking handlers.
	ReceiveMessage(ctx context.Context, messageID, source, eventType string, payload []byte) (*domain.InboxMessage, error)

	// RegisterHandler binds a handler to an event type. Registration happens
	// during wiring, before the processing loop starts.
	RegisterHandler(eventType string, handler InboxHandler)

	// ProcessOnce runs one processing sweep over pending messages, oldest
	// received first. Returns the number of messages handled successfully.
	ProcessOnce(ctx context.Context) (int, error)

	// Run polls ProcessOnce on the configured interval until ctx is done.
	Run(ctx context.Context)
}
