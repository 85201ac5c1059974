package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/finflowhq/finflow_backend/internal/dto"
)

// SagaStepExecutor interprets tagged step descriptors. Steps carry data, not
// closures, so saga instances survive serialization; the executor supplies
// the behavior for each StepKind.
type SagaStepExecutor interface {
	// StepsFor returns the ordered step list for a workflow kind.
	StepsFor(kind domain.SagaKind) ([]domain.SagaStep, error)

	// ExecuteStep performs the forward action of one step. The returned data,
	// if non-nil, replaces the instance data carried to subsequent steps.
	ExecuteStep(ctx context.Context, step domain.SagaStep, data json.RawMessage) (json.RawMessage, error)

	// CompensateStep undoes a previously completed step.
	CompensateStep(ctx context.Context, step domain.SagaStep, data json.RawMessage) error
}

// SagaSvcFacade orchestrates multi-step workflows with reverse-order
// compensation on partial failure.
type SagaSvcFacade interface {
	// StartSaga builds the step list for the kind and runs the workflow to a
	// terminal or failed state. The returned instance reflects the final
	// status.
	StartSaga(ctx context.Context, kind domain.SagaKind, initialData json.RawMessage) (*domain.SagaInstance, error)

	// CancelSaga cooperatively cancels a non-terminal instance: the step in
	// flight settles first, then compensation runs from the current step
	// backward.
	CancelSaga(ctx context.Context, sagaID string) error

	// GetSagaStatus returns the externally observable saga state.
	GetSagaStatus(ctx context.Context, sagaID string) (*dto.SagaStatusResponse, error)

	// PurgeTerminal discards terminal instances older than the retention
	// grace period.
	PurgeTerminal(ctx context.Context) (int64, error)

	// RunJanitor calls PurgeTerminal on the given interval until ctx is done.
	RunJanitor(ctx context.Context, interval time.Duration)
}
