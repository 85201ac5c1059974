package services_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock JournalRepository ---
type MockJournalRepository struct {
	mock.Mock
}

var _ portsrepo.JournalRepositoryFacade = (*MockJournalRepository)(nil)

func (m *MockJournalRepository) SaveJournal(ctx context.Context, journal domain.JournalEntry) error {
	args := m.Called(ctx, journal)
	return args.Error(0)
}

func (m *MockJournalRepository) FindJournalByID(ctx context.Context, journalID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockJournalRepository) FindEntriesByJournalID(ctx context.Context, journalID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockJournalRepository) UpdateJournalStatus(ctx context.Context, journalID string, status domain.JournalStatus, reversingJournalID *string, updatedAt time.Time) error {
	args := m.Called(ctx, journalID, status, reversingJournalID, updatedAt)
	return args.Error(0)
}

// --- Mock AccountRepository ---
type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, changes, updatedBy, updatedAt)
	return args.Error(0)
}

// --- Mock OutboxRepository ---
type MockOutboxRepository struct {
	mock.Mock
}

var _ portsrepo.OutboxRepositoryFacade = (*MockOutboxRepository)(nil)

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, event domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) FindPendingEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	args := m.Called(ctx, eventID, processedAt)
	return args.Error(0)
}

func (m *MockOutboxRepository) RecordFailure(ctx context.Context, eventID string, errMsg string, permanent bool) error {
	args := m.Called(ctx, eventID, errMsg, permanent)
	return args.Error(0)
}

// --- Mock InboxRepository ---
type MockInboxRepository struct {
	mock.Mock
}

var _ portsrepo.InboxRepositoryFacade = (*MockInboxRepository)(nil)

func (m *MockInboxRepository) SaveMessage(ctx context.Context, msg domain.InboxMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockInboxRepository) IsKnown(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInboxRepository) FindPendingMessages(ctx context.Context, limit int) ([]domain.InboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InboxMessage), args.Error(1)
}

func (m *MockInboxRepository) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	args := m.Called(ctx, id, processedAt)
	return args.Error(0)
}

func (m *MockInboxRepository) RecordFailure(ctx context.Context, id string, errMsg string, permanent bool) error {
	args := m.Called(ctx, id, errMsg, permanent)
	return args.Error(0)
}

// --- Mock SagaRepository ---
type MockSagaRepository struct {
	mock.Mock
}

var _ portsrepo.SagaRepositoryFacade = (*MockSagaRepository)(nil)

func (m *MockSagaRepository) SaveSaga(ctx context.Context, saga domain.SagaInstance) error {
	args := m.Called(ctx, saga)
	return args.Error(0)
}

func (m *MockSagaRepository) UpdateSaga(ctx context.Context, saga domain.SagaInstance) error {
	args := m.Called(ctx, saga)
	return args.Error(0)
}

func (m *MockSagaRepository) FindSagaByID(ctx context.Context, sagaID string) (*domain.SagaInstance, error) {
	args := m.Called(ctx, sagaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SagaInstance), args.Error(1)
}

func (m *MockSagaRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Tx and TransactionManager ---
type MockTx struct {
	mock.Mock
}

var _ portsrepo.Tx = (*MockTx)(nil)

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Savepoint(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockTx) RollbackToSavepoint(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

type MockTxManager struct {
	mock.Mock
}

var _ portsrepo.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) Begin(ctx context.Context) (portsrepo.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(portsrepo.Tx), args.Error(1)
}

// --- Mock EventPublisher ---
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	args := m.Called(ctx, topic, key, payload, headers)
	return args.Error(0)
}

// --- Mock ReadStoreSink ---
type MockReadStore struct {
	mock.Mock
}

func (m *MockReadStore) Upsert(ctx context.Context, entityType, entityID string, data []byte) error {
	args := m.Called(ctx, entityType, entityID, data)
	return args.Error(0)
}

func (m *MockReadStore) Delete(ctx context.Context, entityType, entityID string) error {
	args := m.Called(ctx, entityType, entityID)
	return args.Error(0)
}

// --- Mock CacheInvalidator ---
type MockCacheInvalidator struct {
	mock.Mock
}

func (m *MockCacheInvalidator) Invalidate(ctx context.Context, namespace, key string) error {
	args := m.Called(ctx, namespace, key)
	return args.Error(0)
}

// --- Mock SagaStepExecutor ---
type MockStepExecutor struct {
	mock.Mock
}

func (m *MockStepExecutor) StepsFor(kind domain.SagaKind) ([]domain.SagaStep, error) {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SagaStep), args.Error(1)
}

func (m *MockStepExecutor) ExecuteStep(ctx context.Context, step domain.SagaStep, data json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, step, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockStepExecutor) CompensateStep(ctx context.Context, step domain.SagaStep, data json.RawMessage) error {
	args := m.Called(ctx, step, data)
	return args.Error(0)
}

// --- Mock EventSink ---
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) AppendEvents(ctx context.Context, events []domain.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// --- Mock LedgerSvcFacade ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CreateJournalEntry(ctx context.Context, req dto.CreateJournalRequest, creatorUserID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockLedgerService) PostJournalEntry(ctx context.Context, journalID string, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, journalID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockLedgerService) CreateReversingEntry(ctx context.Context, journalID string, userID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, journalID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

func (m *MockLedgerService) GetJournalByID(ctx context.Context, journalID string) (*domain.JournalEntry, error) {
	args := m.Called(ctx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalEntry), args.Error(1)
}

// --- Mock UnitOfWork ---
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return ctx, args.Error(1)
	}
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *MockUnitOfWork) TrackChange(entityID, entityType string, op domain.ChangeOp) {
	m.Called(entityID, entityType, op)
}

func (m *MockUnitOfWork) AddDomainEvent(evt domain.Event) {
	m.Called(evt)
}

func (m *MockUnitOfWork) Savepoint(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockUnitOfWork) RollbackToSavepoint(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockUnitOfWork) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockUnitOfWork) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockUnitOfWork) Status() portssvc.UnitOfWorkStatus {
	return m.Called().Get(0).(portssvc.UnitOfWorkStatus)
}

func (m *MockUnitOfWork) TrackedChanges() []domain.ChangeRecord {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.ChangeRecord)
}

// --- Mock UnitOfWorkFactory ---
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) NewUnitOfWork() portssvc.UnitOfWork {
	return m.Called().Get(0).(portssvc.UnitOfWork)
}

// --- Mock OutboxSvcFacade ---
type MockOutboxService struct {
	mock.Mock
}

func (m *MockOutboxService) AddEvent(ctx context.Context, aggregateID, aggregateType, eventType string, payload []byte, version int) error {
	args := m.Called(ctx, aggregateID, aggregateType, eventType, payload, version)
	return args.Error(0)
}

func (m *MockOutboxService) DispatchOnce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockOutboxService) Run(ctx context.Context) {
	m.Called(ctx)
}

// --- Mock SagaSvcFacade ---
type MockSagaService struct {
	mock.Mock
}

func (m *MockSagaService) StartSaga(ctx context.Context, kind domain.SagaKind, initialData json.RawMessage) (*domain.SagaInstance, error) {
	args := m.Called(ctx, kind, initialData)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SagaInstance), args.Error(1)
}

func (m *MockSagaService) CancelSaga(ctx context.Context, sagaID string) error {
	return m.Called(ctx, sagaID).Error(0)
}

func (m *MockSagaService) GetSagaStatus(ctx context.Context, sagaID string) (*dto.SagaStatusResponse, error) {
	args := m.Called(ctx, sagaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SagaStatusResponse), args.Error(1)
}

func (m *MockSagaService) PurgeTerminal(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSagaService) RunJanitor(ctx context.Context, interval time.Duration) {
	m.Called(ctx, interval)
}
