package domain

import "time"

// InboxStatus is the processing state of an inbound message.
type InboxStatus string

const (
	InboxPending   InboxStatus = "PENDING"
	InboxProcessed InboxStatus = "PROCESSED"
	InboxFailed    InboxStatus = "FAILED"
	InboxDuplicate InboxStatus = "DUPLICATE"
)

// InboxMessage is a broker message recorded before handling. The
// broker-assigned MessageID is the deduplication key: a message whose ID has
// already reached PROCESSED is recorded as DUPLICATE and never re-handled.
type InboxMessage struct {
	ID           string      `json:"id"`
	MessageID    string      `json:"messageID"` // Broker-assigned, dedup key
	Source       string      `json:"source"`
	EventType    string      `json:"eventType"`
	Payload      []byte      `json:"payload"`
	Status       InboxStatus `json:"status"`
	RetryCount   int         `json:"retryCount"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	ReceivedAt   time.Time   `json:"receivedAt"`
	ProcessedAt  *time.Time  `json:"processedAt,omitempty"`
}
