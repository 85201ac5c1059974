package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/middleware"
)

// InboxConfig tunes the background processing loop.
type InboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
}

// inboxService deduplicates redelivered broker messages and retries handler
// dispatch with a bounded count. The PROCESSED rows in the inbox table are
// the durable dedup set, so the guarantee survives process restarts.
type inboxService struct {
	repo     portsrepo.InboxRepositoryFacade
	cfg      InboxConfig
	logger   *slog.Logger
	handlers map[string]portssvc.InboxHandler
}

// NewInboxService creates a new InboxService. Handlers are registered during
// wiring, before the processing loop starts; the map is read-only afterwards.
func NewInboxService(repo portsrepo.InboxRepositoryFacade, cfg InboxConfig, logger *slog.Logger) portssvc.InboxSvcFacade {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &inboxService{
		repo:     repo,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "inbox_processor")),
		handlers: make(map[string]portssvc.InboxHandler),
	}
}

var _ portssvc.InboxSvcFacade = (*inboxService)(nil)

func (s *inboxService) RegisterHandler(eventType string, handler portssvc.InboxHandler) {
	s.handlers[eventType] = handler
}

// ReceiveMessage records an inbound broker message. If any copy of the broker
// message id is already stored, pending included, the new copy is stored as
// DUPLICATE and returned immediately; handlers never see it. Duplicates are
// not errors.
func (s *inboxService) ReceiveMessage(ctx context.Context, messageID, source, eventType string, payload []byte) (*domain.InboxMessage, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	known, err := s.repo.IsKnown(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to check dedup set: %w", err)
	}

	msg := domain.InboxMessage{
		ID:         uuid.NewString(),
		MessageID:  messageID,
		Source:     source,
		EventType:  eventType,
		Payload:    payload,
		Status:     domain.InboxPending,
		ReceivedAt: time.Now().UTC(),
	}
	if known {
		msg.Status = domain.InboxDuplicate
		logger.Info("Duplicate message recorded",
			slog.String("message_id", messageID),
			slog.String("event_type", eventType))
	}

	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store inbox message: %w", err)
	}
	return &msg, nil
}

// ProcessOnce runs one sweep over pending messages, oldest-received-first.
// Handler failures are contained per message: below the retry ceiling the
// message stays pending, at the ceiling it becomes permanently failed.
func (s *inboxService) ProcessOnce(ctx context.Context) (int, error) {
	messages, err := s.repo.FindPendingMessages(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending inbox messages: %w", err)
	}

	handled := 0
	for _, msg := range messages {
		handler, ok := s.handlers[msg.EventType]
		if !ok {
			s.failMessage(ctx, msg, fmt.Errorf("no handler registered for event type %q", msg.EventType))
			continue
		}
		if err := handler(ctx, msg); err != nil {
			s.failMessage(ctx, msg, err)
			continue
		}
		if err := s.repo.MarkProcessed(ctx, msg.ID, time.Now().UTC()); err != nil {
			s.logger.Error("Handled message could not be marked processed",
				slog.String("message_id", msg.MessageID),
				slog.String("error", err.Error()))
			continue
		}
		handled++
	}
	return handled, nil
}

func (s *inboxService) failMessage(ctx context.Context, msg domain.InboxMessage, handleErr error) {
	permanent := msg.RetryCount+1 >= s.cfg.MaxRetries
	if permanent {
		s.logger.Error("Inbox message exhausted retries; marked failed",
			slog.String("message_id", msg.MessageID),
			slog.String("event_type", msg.EventType),
			slog.Int("retry_count", msg.RetryCount+1),
			slog.String("error", handleErr.Error()))
	} else {
		s.logger.Warn("Inbox handler failed; message returns to pending",
			slog.String("message_id", msg.MessageID),
			slog.Int("retry_count", msg.RetryCount+1),
			slog.String("error", handleErr.Error()))
	}
	if err := s.repo.RecordFailure(ctx, msg.ID, handleErr.Error(), permanent); err != nil {
		s.logger.Error("Failed to record inbox failure", slog.String("message_id", msg.MessageID), slog.String("error", err.Error()))
	}
}

// Run polls ProcessOnce on the configured interval until ctx is done.
func (s *inboxService) Run(ctx context.Context) {
	ctx = middleware.ContextWithLogger(ctx, s.logger)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info("Inbox processor started", slog.Duration("poll_interval", s.cfg.PollInterval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Inbox processor stopped")
			return
		case <-ticker.C:
			if _, err := s.ProcessOnce(ctx); err != nil {
				s.logger.Error("Inbox sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
