package repositories

import (
	"context"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
)

// SagaRepositoryFacade defines persistence operations for saga instances.
// Instances are persisted on every transition so an orchestrator restart can
// observe where each workflow stopped.
type SagaRepositoryFacade interface {
	SaveSaga(ctx context.Context, saga domain.SagaInstance) error
	UpdateSaga(ctx context.Context, saga domain.SagaInstance) error
	FindSagaByID(ctx context.Context, sagaID string) (*domain.SagaInstance, error)

	// DeleteTerminalBefore discards terminal instances whose last update is
	// older than cutoff, returning how many were removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
