package services

import (
	"log/slog"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/finflowhq/finflow_backend/internal/core/ports/messaging"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
)

// ContainerConfig carries the tunables for the background components.
type ContainerConfig struct {
	Outbox OutboxConfig
	Inbox  InboxConfig
	Saga   SagaConfig
}

// NewServiceContainer wires all application services. The saga orchestrator
// and the transaction executor reference each other, so construction happens
// in two stages before the container is returned.
func NewServiceContainer(
	repos portsrepo.RepositoryProvider,
	publisher messaging.EventPublisher,
	readStore messaging.ReadStoreSink,
	cache messaging.CacheInvalidator,
	cfg ContainerConfig,
	logger *slog.Logger,
) *portssvc.ServiceContainer {
	ledgerSvc := NewLedgerService(repos.JournalRepo, repos.AccountRepo)
	outboxSvc := NewOutboxService(repos.OutboxRepo, publisher, cfg.Outbox, logger)
	inboxSvc := NewInboxService(repos.InboxRepo, cfg.Inbox, logger)

	uowFactory := NewUnitOfWorkFactory(repos.TxManager, outboxSvc)

	transactionSvc := NewTransactionService(repos, uowFactory, ledgerSvc, outboxSvc, readStore, cache)

	sagaSvc := NewSagaService(repos.SagaRepo, outboxSvc, cfg.Saga, logger)
	sagaSvc.RegisterExecutor(domain.SagaProcessTransaction, transactionSvc)
	sagaSvc.RegisterExecutor(domain.SagaReverseTransaction, transactionSvc)
	transactionSvc.AttachSaga(sagaSvc)

	NewProjectionService(readStore, cache).RegisterHandlers(inboxSvc)

	return &portssvc.ServiceContainer{
		Ledger:      ledgerSvc,
		Outbox:      outboxSvc,
		Inbox:       inboxSvc,
		Saga:        sagaSvc,
		Transaction: transactionSvc,
	}
}
