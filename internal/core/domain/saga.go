package domain

import (
	"encoding/json"
	"time"
)

// SagaStatus is the lifecycle state of a saga instance.
type SagaStatus string

const (
	SagaStarted            SagaStatus = "STARTED"
	SagaInProgress         SagaStatus = "IN_PROGRESS"
	SagaCompleted          SagaStatus = "COMPLETED"
	SagaFailed             SagaStatus = "FAILED"
	SagaCompensating       SagaStatus = "COMPENSATING"
	SagaCompensated        SagaStatus = "COMPENSATED"
	SagaCompensationFailed SagaStatus = "COMPENSATION_FAILED"
)

// IsTerminal reports whether no further transitions are possible.
func (s SagaStatus) IsTerminal() bool {
	switch s {
	case SagaCompleted, SagaCompensated, SagaCompensationFailed:
		return true
	}
	return false
}

// SagaKind names a workflow definition the executor knows how to run.
type SagaKind string

const (
	SagaProcessTransaction SagaKind = "PROCESS_TRANSACTION"
	SagaReverseTransaction SagaKind = "REVERSE_TRANSACTION"
)

// StepKind is a tagged step descriptor interpreted by a single executor.
// Steps carry data, not closures, so an instance can be persisted and
// resumed after a crash.
type StepKind string

const (
	StepCreateJournal    StepKind = "CREATE_JOURNAL"
	StepPostJournal      StepKind = "POST_JOURNAL"
	StepPublishEvent     StepKind = "PUBLISH_EVENT"
	StepProjectReadModel StepKind = "PROJECT_READ_MODEL"
	StepReverseJournal   StepKind = "REVERSE_JOURNAL"
)

// SagaStep is one ordered unit of a saga: a step kind plus its execution
// result fields.
type SagaStep struct {
	Name        string   `json:"name"`
	Kind        StepKind `json:"kind"`
	IsCompleted bool     `json:"isCompleted"`
	Error       string   `json:"error,omitempty"`
}

// SagaInstance is a persisted multi-step workflow. Created on workflow
// start, it advances step by step; on failure the already-completed steps
// are compensated in strict reverse order.
type SagaInstance struct {
	SagaID      string          `json:"sagaID"`
	Kind        SagaKind        `json:"kind"`
	Steps       []SagaStep      `json:"steps"`
	CurrentStep int             `json:"currentStep"`
	Status      SagaStatus      `json:"status"`
	Data        json.RawMessage `json:"data"` // Workflow input, carried across steps
	Errors      []string        `json:"errors,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// CompletedStepsReversed returns indexes of completed steps in reverse
// order, the order compensation must run in.
func (s *SagaInstance) CompletedStepsReversed() []int {
	idxs := make([]int, 0, len(s.Steps))
	for i := len(s.Steps) - 1; i >= 0; i-- {
		if s.Steps[i].IsCompleted {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
