package domain

import "time"

// Event is a domain event raised inside a unit of work. Events are buffered
// until the owning storage transaction commits and only then handed to the
// outbox for delivery.
type Event struct {
	EventID       string    `json:"eventID"`
	AggregateID   string    `json:"aggregateID"`
	AggregateType string    `json:"aggregateType"`
	EventType     string    `json:"eventType"`
	Payload       []byte    `json:"payload"`
	Version       int       `json:"version"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ChangeOp names the kind of entity mutation tracked by a unit of work.
type ChangeOp string

const (
	OpCreate ChangeOp = "CREATE"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// ChangeRecord is a tracked entity mutation, kept for observability and
// debugging only; it is never replayed.
type ChangeRecord struct {
	EntityID   string    `json:"entityID"`
	EntityType string    `json:"entityType"`
	Op         ChangeOp  `json:"op"`
	TrackedAt  time.Time `json:"trackedAt"`
}
