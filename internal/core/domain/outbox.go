package domain

import "time"

// OutboxStatus is the delivery state of an outbox event.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxProcessed OutboxStatus = "PROCESSED"
	OutboxFailed    OutboxStatus = "FAILED"
)

// OutboxEvent is a durably staged event awaiting broker delivery. Rows are
// written in the same storage transaction as the business change they
// describe, so an event can never exist without its cause having committed.
type OutboxEvent struct {
	EventID       string       `json:"eventID"`
	AggregateID   string       `json:"aggregateID"`
	AggregateType string       `json:"aggregateType"`
	EventType     string       `json:"eventType"`
	Payload       []byte       `json:"payload"`
	Version       int          `json:"version"`
	Status        OutboxStatus `json:"status"`
	RetryCount    int          `json:"retryCount"`
	ErrorMessage  string       `json:"errorMessage,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	ProcessedAt   *time.Time   `json:"processedAt,omitempty"`
}
