package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/finflowhq/finflow_backend/internal/core/ports/messaging"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/dto"
	"github.com/finflowhq/finflow_backend/internal/middleware"
)

var ErrUnknownStepKind = errors.New("unknown saga step kind")

// processTransactionData is the workflow input carried across saga steps.
// JournalID is filled in by the create-journal step for the steps after it.
type processTransactionData struct {
	dto.CreateTransactionRequest
	UserID    string `json:"userID"`
	JournalID string `json:"journalID,omitempty"`
}

// transactionService runs user transaction writes through the
// process-transaction saga. It doubles as the saga step executor: step
// descriptors name a StepKind, and this service supplies the behavior.
type transactionService struct {
	repos      portsrepo.RepositoryProvider
	uowFactory portssvc.UnitOfWorkFactory
	ledger     portssvc.LedgerSvcFacade
	outbox     portssvc.OutboxSvcFacade
	readStore  messaging.ReadStoreSink
	cache      messaging.CacheInvalidator
	saga       portssvc.SagaSvcFacade
}

// NewTransactionService creates the transaction workflow service. AttachSaga
// must be called before CreateTransaction is used; the orchestrator and the
// executor reference each other so wiring happens in two stages.
func NewTransactionService(
	repos portsrepo.RepositoryProvider,
	uowFactory portssvc.UnitOfWorkFactory,
	ledger portssvc.LedgerSvcFacade,
	outbox portssvc.OutboxSvcFacade,
	readStore messaging.ReadStoreSink,
	cache messaging.CacheInvalidator,
) *transactionService {
	return &transactionService{
		repos:      repos,
		uowFactory: uowFactory,
		ledger:     ledger,
		outbox:     outbox,
		readStore:  readStore,
		cache:      cache,
	}
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)
var _ portssvc.SagaStepExecutor = (*transactionService)(nil)

// AttachSaga binds the orchestrator this service submits workflows to.
func (s *transactionService) AttachSaga(saga portssvc.SagaSvcFacade) {
	s.saga = saga
}

// CreateTransaction records a user transaction by running the
// process-transaction saga to a terminal state.
func (s *transactionService) CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest, userID string) (*dto.CreateTransactionResponse, error) {
	if req.Date.IsZero() {
		req.Date = time.Now().UTC()
	}
	data, err := json.Marshal(processTransactionData{CreateTransactionRequest: req, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow data: %w", err)
	}

	saga, err := s.saga.StartSaga(ctx, domain.SagaProcessTransaction, data)
	if err != nil {
		return nil, err
	}
	return s.workflowResponse(saga), nil
}

// ReverseTransaction undoes a posted transaction through the
// reverse-transaction saga.
func (s *transactionService) ReverseTransaction(ctx context.Context, journalID string, userID string) (*dto.CreateTransactionResponse, error) {
	data, err := json.Marshal(processTransactionData{UserID: userID, JournalID: journalID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow data: %w", err)
	}

	saga, err := s.saga.StartSaga(ctx, domain.SagaReverseTransaction, data)
	if err != nil {
		return nil, err
	}
	return s.workflowResponse(saga), nil
}

func (s *transactionService) workflowResponse(saga *domain.SagaInstance) *dto.CreateTransactionResponse {
	var d processTransactionData
	_ = json.Unmarshal(saga.Data, &d)
	return &dto.CreateTransactionResponse{
		SagaID:    saga.SagaID,
		Status:    string(saga.Status),
		JournalID: d.JournalID,
	}
}

// StepsFor returns the ordered step list for a workflow kind.
func (s *transactionService) StepsFor(kind domain.SagaKind) ([]domain.SagaStep, error) {
	switch kind {
	case domain.SagaProcessTransaction:
		return []domain.SagaStep{
			{Name: "create_journal", Kind: domain.StepCreateJournal},
			{Name: "post_journal", Kind: domain.StepPostJournal},
			{Name: "publish_transaction", Kind: domain.StepPublishEvent},
			{Name: "project_read_model", Kind: domain.StepProjectReadModel},
		}, nil
	case domain.SagaReverseTransaction:
		return []domain.SagaStep{
			{Name: "reverse_journal", Kind: domain.StepReverseJournal},
			{Name: "publish_transaction", Kind: domain.StepPublishEvent},
			{Name: "project_read_model", Kind: domain.StepProjectReadModel},
		}, nil
	}
	return nil, fmt.Errorf("%w: no steps defined for %s", ErrUnknownSagaKind, kind)
}

// ExecuteStep performs the forward action of one step.
func (s *transactionService) ExecuteStep(ctx context.Context, step domain.SagaStep, data json.RawMessage) (json.RawMessage, error) {
	var d processTransactionData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode workflow data: %w", err)
	}

	switch step.Kind {
	case domain.StepCreateJournal:
		return s.executeCreateJournal(ctx, d)
	case domain.StepPostJournal:
		return nil, s.executePostJournal(ctx, d)
	case domain.StepPublishEvent:
		return nil, s.executePublishEvent(ctx, d, "transaction.completed")
	case domain.StepProjectReadModel:
		return nil, s.executeProjectReadModel(ctx, d)
	case domain.StepReverseJournal:
		return s.executeReverseJournal(ctx, d)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStepKind, step.Kind)
}

// CompensateStep undoes a previously completed step.
func (s *transactionService) CompensateStep(ctx context.Context, step domain.SagaStep, data json.RawMessage) error {
	var d processTransactionData
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("failed to decode workflow data: %w", err)
	}

	switch step.Kind {
	case domain.StepCreateJournal:
		return s.compensateCreateJournal(ctx, d)
	case domain.StepPostJournal:
		return s.compensatePostJournal(ctx, d)
	case domain.StepPublishEvent:
		return s.executePublishEvent(ctx, d, "transaction.cancelled")
	case domain.StepProjectReadModel:
		return s.compensateProjectReadModel(ctx, d)
	case domain.StepReverseJournal:
		// Reversing a reversal would re-post the original; left to manual
		// intervention instead of automated double-reversal.
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownStepKind, step.Kind)
}

// executeCreateJournal opens a unit of work, drafts the balanced journal for
// the transaction, and stages the transaction.created event in the same
// storage transaction.
func (s *transactionService) executeCreateJournal(ctx context.Context, d processTransactionData) (json.RawMessage, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	uow := s.uowFactory.NewUnitOfWork()
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return nil, err
	}

	journalReq := dto.CreateJournalRequest{
		Date:         d.Date,
		Description:  d.Description,
		CurrencyCode: d.CurrencyCode,
		Entries: []dto.CreateLedgerEntryRequest{
			{AccountID: d.CategoryAccountID, Amount: d.Amount, EntryType: domain.Debit},
			{AccountID: d.SourceAccountID, Amount: d.Amount, EntryType: domain.Credit},
		},
	}

	journal, err := s.ledger.CreateJournalEntry(txCtx, journalReq, d.UserID)
	if err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			logger.Error("Rollback failed after journal creation error", slog.String("error", rbErr.Error()))
		}
		return nil, err
	}

	uow.TrackChange(journal.JournalID, "journal", domain.OpCreate)

	payload, err := json.Marshal(dto.ToJournalResponse(journal))
	if err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			logger.Error("Rollback failed after payload encoding error", slog.String("error", rbErr.Error()))
		}
		return nil, fmt.Errorf("failed to encode journal payload: %w", err)
	}

	// Staged on the unit-of-work transaction: the event commits with the
	// journal or not at all.
	if err := s.outbox.AddEvent(txCtx, journal.JournalID, "transaction", "transaction.created", payload, 1); err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			logger.Error("Rollback failed after outbox staging error", slog.String("error", rbErr.Error()))
		}
		return nil, err
	}

	if err := uow.Commit(txCtx); err != nil {
		return nil, err
	}

	d.JournalID = journal.JournalID
	return json.Marshal(d)
}

// executePostJournal posts the draft journal and applies balance changes in
// one unit of work.
func (s *transactionService) executePostJournal(ctx context.Context, d processTransactionData) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	uow := s.uowFactory.NewUnitOfWork()
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	journal, err := s.ledger.PostJournalEntry(txCtx, d.JournalID, d.UserID)
	if err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			logger.Error("Rollback failed after posting error", slog.String("error", rbErr.Error()))
		}
		return err
	}

	uow.TrackChange(journal.JournalID, "journal", domain.OpUpdate)
	uow.AddDomainEvent(domain.Event{
		AggregateID:   journal.JournalID,
		AggregateType: "journal",
		EventType:     "journal.posted",
		Payload:       []byte(fmt.Sprintf(`{"journalID":%q}`, journal.JournalID)),
		Version:       1,
		OccurredAt:    time.Now().UTC(),
	})

	return uow.Commit(txCtx)
}

// executePublishEvent stages the workflow-level integration event.
func (s *transactionService) executePublishEvent(ctx context.Context, d processTransactionData, eventType string) error {
	payload, err := json.Marshal(map[string]string{
		"journalID": d.JournalID,
		"userID":    d.UserID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode integration event: %w", err)
	}
	return s.outbox.AddEvent(ctx, d.JournalID, "transaction", eventType, payload, 1)
}

// executeProjectReadModel seeds the read-optimized document for the new
// transaction and drops stale cached views. The inbox-driven projection
// handlers keep the document fresh afterwards.
func (s *transactionService) executeProjectReadModel(ctx context.Context, d processTransactionData) error {
	journal, err := s.ledger.GetJournalByID(ctx, d.JournalID)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(dto.ToJournalResponse(journal))
	if err != nil {
		return fmt.Errorf("failed to encode read model document: %w", err)
	}
	if err := s.readStore.Upsert(ctx, "transaction", d.JournalID, doc); err != nil {
		return err
	}
	return s.invalidateViews(ctx, d)
}

// executeReverseJournal creates and posts the equal-and-opposite journal.
func (s *transactionService) executeReverseJournal(ctx context.Context, d processTransactionData) (json.RawMessage, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	uow := s.uowFactory.NewUnitOfWork()
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return nil, err
	}

	reversal, err := s.ledger.CreateReversingEntry(txCtx, d.JournalID, d.UserID)
	if err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			logger.Error("Rollback failed after reversal error", slog.String("error", rbErr.Error()))
		}
		return nil, err
	}

	uow.TrackChange(reversal.JournalID, "journal", domain.OpCreate)

	payload, err := json.Marshal(map[string]string{
		"journalID":         reversal.JournalID,
		"originalJournalID": d.JournalID,
	})
	if err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			logger.Error("Rollback failed after payload encoding error", slog.String("error", rbErr.Error()))
		}
		return nil, fmt.Errorf("failed to encode reversal payload: %w", err)
	}

	if err := s.outbox.AddEvent(txCtx, reversal.JournalID, "transaction", "transaction.reversed", payload, 1); err != nil {
		if rbErr := uow.Rollback(txCtx); rbErr != nil {
			logger.Error("Rollback failed after outbox staging error", slog.String("error", rbErr.Error()))
		}
		return nil, err
	}

	if err := uow.Commit(txCtx); err != nil {
		return nil, err
	}

	d.JournalID = reversal.JournalID
	return json.Marshal(d)
}

// compensateCreateJournal voids a journal that never got posted. A journal
// the post step already handled is left to compensatePostJournal.
func (s *transactionService) compensateCreateJournal(ctx context.Context, d processTransactionData) error {
	if d.JournalID == "" {
		return nil
	}
	journal, err := s.repos.JournalRepo.FindJournalByID(ctx, d.JournalID)
	if err != nil {
		return err
	}
	if journal.Status != domain.Draft {
		return nil
	}
	return s.repos.JournalRepo.UpdateJournalStatus(ctx, d.JournalID, domain.Reversed, nil, time.Now().UTC())
}

// compensatePostJournal un-applies a posted journal by posting its reversal.
func (s *transactionService) compensatePostJournal(ctx context.Context, d processTransactionData) error {
	_, err := s.ledger.CreateReversingEntry(ctx, d.JournalID, d.UserID)
	if errors.Is(err, ErrAlreadyReversed) {
		return nil
	}
	return err
}

// compensateProjectReadModel removes the projected document and invalidates
// dependent views.
func (s *transactionService) compensateProjectReadModel(ctx context.Context, d processTransactionData) error {
	if err := s.readStore.Delete(ctx, "transaction", d.JournalID); err != nil {
		return err
	}
	return s.invalidateViews(ctx, d)
}

func (s *transactionService) invalidateViews(ctx context.Context, d processTransactionData) error {
	if err := s.cache.Invalidate(ctx, "dashboard", d.UserID); err != nil {
		return err
	}
	if d.SourceAccountID != "" {
		if err := s.cache.Invalidate(ctx, "account", d.SourceAccountID); err != nil {
			return err
		}
	}
	if d.CategoryAccountID != "" {
		if err := s.cache.Invalidate(ctx, "account", d.CategoryAccountID); err != nil {
			return err
		}
	}
	return nil
}
