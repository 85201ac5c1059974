package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/dto"
	"github.com/finflowhq/finflow_backend/internal/middleware"
)

var (
	ErrUnknownSagaKind = errors.New("no executor registered for saga kind")
	ErrSagaTerminal    = fmt.Errorf("%w: saga is already in a terminal state", apperrors.ErrInvalidState)
)

// SagaConfig tunes instance retention.
type SagaConfig struct {
	// Retention is the grace period terminal instances stay queryable before
	// the janitor discards them.
	Retention time.Duration
}

// sagaService orchestrates multi-step workflows. Step behavior lives in
// registered executors keyed by workflow kind; instances are persisted on
// every transition. Step execution is strictly sequential and compensation
// strictly reverse-sequential.
type sagaService struct {
	repo      portsrepo.SagaRepositoryFacade
	outbox    portssvc.OutboxSvcFacade
	executors map[domain.SagaKind]portssvc.SagaStepExecutor
	cfg       SagaConfig
	logger    *slog.Logger

	// cancels holds a flag per in-flight saga. Mutated from request
	// goroutines, read by the executing loop, hence the concurrent map.
	cancels sync.Map // sagaID -> *atomic.Bool
}

// NewSagaService creates a new saga orchestrator.
func NewSagaService(repo portsrepo.SagaRepositoryFacade, outbox portssvc.OutboxSvcFacade, cfg SagaConfig, logger *slog.Logger) *sagaService {
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	return &sagaService{
		repo:      repo,
		outbox:    outbox,
		executors: make(map[domain.SagaKind]portssvc.SagaStepExecutor),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "saga_orchestrator")),
	}
}

var _ portssvc.SagaSvcFacade = (*sagaService)(nil)

// RegisterExecutor binds an executor to a workflow kind. Registration
// happens during wiring.
func (s *sagaService) RegisterExecutor(kind domain.SagaKind, exec portssvc.SagaStepExecutor) {
	s.executors[kind] = exec
}

// StartSaga builds the step list for the kind and runs the workflow to a
// terminal state. The saga's terminal status is the external failure signal;
// step errors do not propagate as returned errors once execution has begun.
func (s *sagaService) StartSaga(ctx context.Context, kind domain.SagaKind, initialData json.RawMessage) (*domain.SagaInstance, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	exec, ok := s.executors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSagaKind, kind)
	}
	steps, err := exec.StepsFor(kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	saga := &domain.SagaInstance{
		SagaID:    uuid.NewString(),
		Kind:      kind,
		Steps:     steps,
		Status:    domain.SagaStarted,
		Data:      initialData,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SaveSaga(ctx, *saga); err != nil {
		return nil, fmt.Errorf("failed to persist saga: %w", err)
	}

	cancel := &atomic.Bool{}
	s.cancels.Store(saga.SagaID, cancel)
	defer s.cancels.Delete(saga.SagaID)

	logger.Info("Saga started", slog.String("saga_id", saga.SagaID), slog.String("kind", string(kind)), slog.Int("steps", len(steps)))
	s.run(ctx, saga, exec, cancel)
	return saga, nil
}

// run advances the saga step by step. Cancellation is cooperative: it is
// checked between steps only, never interrupting an execute already in
// flight.
func (s *sagaService) run(ctx context.Context, saga *domain.SagaInstance, exec portssvc.SagaStepExecutor, cancel *atomic.Bool) {
	saga.Status = domain.SagaInProgress
	s.persist(ctx, saga)

	for i := range saga.Steps {
		if cancel.Load() {
			s.logger.Info("Saga cancelled before step", slog.String("saga_id", saga.SagaID), slog.Int("step", i))
			saga.Errors = append(saga.Errors, fmt.Sprintf("cancelled before step %q", saga.Steps[i].Name))
			s.compensate(ctx, saga, exec)
			return
		}

		saga.CurrentStep = i
		step := saga.Steps[i]
		s.publishStepEvent(ctx, saga, step.Name+".started", "")

		newData, err := exec.ExecuteStep(ctx, step, saga.Data)
		if err != nil {
			saga.Steps[i].Error = err.Error()
			saga.Errors = append(saga.Errors, fmt.Sprintf("step %q failed: %v", step.Name, err))
			saga.Status = domain.SagaFailed
			s.persist(ctx, saga)
			s.publishStepEvent(ctx, saga, step.Name+".failed", err.Error())
			s.logger.Warn("Saga step failed",
				slog.String("saga_id", saga.SagaID),
				slog.String("step", step.Name),
				slog.String("error", err.Error()))
			s.compensate(ctx, saga, exec)
			return
		}

		saga.Steps[i].IsCompleted = true
		if newData != nil {
			saga.Data = newData
		}
		s.persist(ctx, saga)
		s.publishStepEvent(ctx, saga, step.Name+".completed", "")
	}

	now := time.Now().UTC()
	saga.Status = domain.SagaCompleted
	saga.CompletedAt = &now
	s.persist(ctx, saga)
	s.logger.Info("Saga completed", slog.String("saga_id", saga.SagaID))
}

// compensate unwinds every completed step in strict reverse index order.
// Compensation failures are logged and accumulated but never abort the
// sweep; if any occur the saga lands in COMPENSATION_FAILED, a terminal
// state requiring manual intervention.
func (s *sagaService) compensate(ctx context.Context, saga *domain.SagaInstance, exec portssvc.SagaStepExecutor) {
	saga.Status = domain.SagaCompensating
	s.persist(ctx, saga)

	failures := 0
	for _, idx := range saga.CompletedStepsReversed() {
		step := saga.Steps[idx]
		if err := exec.CompensateStep(ctx, step, saga.Data); err != nil {
			failures++
			saga.Errors = append(saga.Errors, fmt.Sprintf("compensation of %q failed: %v", step.Name, err))
			s.logger.Error("Saga compensation failed",
				slog.String("saga_id", saga.SagaID),
				slog.String("step", step.Name),
				slog.String("error", err.Error()))
			continue
		}
		s.publishStepEvent(ctx, saga, step.Name+".compensated", "")
	}

	now := time.Now().UTC()
	if failures > 0 {
		saga.Status = domain.SagaCompensationFailed
	} else {
		saga.Status = domain.SagaCompensated
	}
	saga.CompletedAt = &now
	s.persist(ctx, saga)
	s.logger.Info("Saga compensation finished",
		slog.String("saga_id", saga.SagaID),
		slog.String("status", string(saga.Status)),
		slog.Int("failures", failures))
}

// CancelSaga cooperatively cancels a non-terminal saga. For a saga executing
// in this process the flag stops advancement once the current step settles;
// for a stranded instance (e.g. after a restart) compensation runs here.
func (s *sagaService) CancelSaga(ctx context.Context, sagaID string) error {
	if flag, ok := s.cancels.Load(sagaID); ok {
		flag.(*atomic.Bool).Store(true)
		return nil
	}

	saga, err := s.repo.FindSagaByID(ctx, sagaID)
	if err != nil {
		return err
	}
	if saga.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrSagaTerminal, sagaID, saga.Status)
	}
	exec, ok := s.executors[saga.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSagaKind, saga.Kind)
	}
	saga.Errors = append(saga.Errors, "cancelled by operator")
	s.compensate(ctx, saga, exec)
	return nil
}

// GetSagaStatus returns the externally observable saga state.
func (s *sagaService) GetSagaStatus(ctx context.Context, sagaID string) (*dto.SagaStatusResponse, error) {
	saga, err := s.repo.FindSagaByID(ctx, sagaID)
	if err != nil {
		return nil, err
	}
	resp := dto.ToSagaStatusResponse(saga)
	return &resp, nil
}

// PurgeTerminal discards terminal instances older than the retention grace
// period.
func (s *sagaService) PurgeTerminal(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.Retention)
	return s.repo.DeleteTerminalBefore(ctx, cutoff)
}

// RunJanitor purges expired terminal instances periodically until ctx is
// done.
func (s *sagaService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := s.PurgeTerminal(ctx)
			if err != nil {
				s.logger.Error("Saga janitor sweep failed", slog.String("error", err.Error()))
				continue
			}
			if purged > 0 {
				s.logger.Info("Purged terminal sagas", slog.Int64("count", purged))
			}
		}
	}
}

// publishStepEvent stages a saga lifecycle event through the outbox. Staging
// failures are logged, not escalated: lifecycle events are observability,
// the saga state itself is authoritative.
func (s *sagaService) publishStepEvent(ctx context.Context, saga *domain.SagaInstance, eventType, errMsg string) {
	payload, err := json.Marshal(map[string]string{
		"sagaId": saga.SagaID,
		"kind":   string(saga.Kind),
		"error":  errMsg,
	})
	if err != nil {
		return
	}
	if err := s.outbox.AddEvent(ctx, saga.SagaID, "saga", eventType, payload, 1); err != nil {
		s.logger.Warn("Failed to stage saga lifecycle event",
			slog.String("saga_id", saga.SagaID),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

func (s *sagaService) persist(ctx context.Context, saga *domain.SagaInstance) {
	saga.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateSaga(ctx, *saga); err != nil {
		s.logger.Error("Failed to persist saga transition",
			slog.String("saga_id", saga.SagaID),
			slog.String("status", string(saga.Status)),
			slog.String("error", err.Error()))
	}
}
