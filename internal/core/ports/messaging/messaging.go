// Package messaging defines the collaborator contracts the core consumes:
// broker publish/consume, the read-store projection sink, and the cache
// invalidation sink. All implementations live in internal/platform and are
// owned by surrounding infrastructure.
package messaging

import "context"

// EventPublisher publishes an event to the message broker. Messages sharing
// a key are delivered in send order to a given consumer group.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error
}

// BrokerMessage is a message pulled from the broker. MessageID is
// broker-assigned and unique; the inbox uses it for deduplication.
type BrokerMessage struct {
	MessageID string
	Source    string
	EventType string
	Key       string
	Payload   []byte
}

// MessageHandler consumes one broker message. A non-nil error leaves the
// message eligible for redelivery.
type MessageHandler func(ctx context.Context, msg BrokerMessage) error

// MessageConsumer streams broker messages to a handler until ctx is done.
type MessageConsumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
}

// ReadStoreSink is the idempotent projection target for the read-optimized
// store.
type ReadStoreSink interface {
	Upsert(ctx context.Context, entityType, entityID string, data []byte) error
	Delete(ctx context.Context, entityType, entityID string) error
}

// CacheInvalidator drops cached query results. An empty key invalidates the
// whole namespace.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, namespace, key string) error
}
