package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/finflowhq/finflow_backend/internal/core/ports/messaging"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/middleware"
)

// projectionService applies synchronized state to the read-optimized store
// and invalidates cache entries. Handlers are idempotent: re-applying the
// same event produces the same document.
type projectionService struct {
	readStore messaging.ReadStoreSink
	cache     messaging.CacheInvalidator
}

// NewProjectionService creates the projection handlers.
func NewProjectionService(readStore messaging.ReadStoreSink, cache messaging.CacheInvalidator) *projectionService {
	return &projectionService{readStore: readStore, cache: cache}
}

// RegisterHandlers binds the projection handlers to the inbox event types
// they consume.
func (s *projectionService) RegisterHandlers(inbox portssvc.InboxSvcFacade) {
	inbox.RegisterHandler("transaction.created", s.HandleTransactionUpsert)
	inbox.RegisterHandler("transaction.completed", s.HandleTransactionUpsert)
	inbox.RegisterHandler("transaction.reversed", s.HandleTransactionUpsert)
	inbox.RegisterHandler("transaction.cancelled", s.HandleTransactionDelete)
	inbox.RegisterHandler("journal.posted", s.HandleJournalPosted)
}

// HandleTransactionUpsert projects the event payload as the transaction
// document keyed by journal id.
func (s *projectionService) HandleTransactionUpsert(ctx context.Context, msg domain.InboxMessage) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	journalID, err := journalIDFromPayload(msg.Payload)
	if err != nil {
		return err
	}
	if err := s.readStore.Upsert(ctx, "transaction", journalID, msg.Payload); err != nil {
		return fmt.Errorf("failed to project transaction %s: %w", journalID, err)
	}
	if err := s.cache.Invalidate(ctx, "dashboard", ""); err != nil {
		return err
	}

	logger.Debug("Projected transaction",
		slog.String("journal_id", journalID),
		slog.String("event_type", msg.EventType))
	return nil
}

// HandleTransactionDelete removes a transaction document whose workflow was
// cancelled.
func (s *projectionService) HandleTransactionDelete(ctx context.Context, msg domain.InboxMessage) error {
	journalID, err := journalIDFromPayload(msg.Payload)
	if err != nil {
		return err
	}
	if err := s.readStore.Delete(ctx, "transaction", journalID); err != nil {
		return fmt.Errorf("failed to delete transaction projection %s: %w", journalID, err)
	}
	return s.cache.Invalidate(ctx, "dashboard", "")
}

// HandleJournalPosted refreshes the journal status document.
func (s *projectionService) HandleJournalPosted(ctx context.Context, msg domain.InboxMessage) error {
	journalID, err := journalIDFromPayload(msg.Payload)
	if err != nil {
		return err
	}
	if err := s.readStore.Upsert(ctx, "journal", journalID, msg.Payload); err != nil {
		return fmt.Errorf("failed to project journal %s: %w", journalID, err)
	}
	return s.cache.Invalidate(ctx, "journal", journalID)
}

func journalIDFromPayload(payload []byte) (string, error) {
	var doc struct {
		JournalID string `json:"journalID"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", fmt.Errorf("failed to decode projection payload: %w", err)
	}
	if doc.JournalID == "" {
		return "", fmt.Errorf("projection payload has no journalID")
	}
	return doc.JournalID, nil
}
