package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/finflowhq/finflow_backend/internal/core/ports/messaging"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/middleware"
)

// OutboxConfig tunes the background dispatcher.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	TopicPrefix  string
}

// outboxService stages events durably and delivers them to the broker from a
// background dispatcher. Delivery errors never propagate to business-logic
// callers; they surface only as event state and logs.
type outboxService struct {
	repo      portsrepo.OutboxRepositoryFacade
	publisher messaging.EventPublisher
	cfg       OutboxConfig
	logger    *slog.Logger
}

// NewOutboxService creates a new OutboxService. The returned service is
// both the staging facade and the unit-of-work event sink.
func NewOutboxService(repo portsrepo.OutboxRepositoryFacade, publisher messaging.EventPublisher, cfg OutboxConfig, logger *slog.Logger) *outboxService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &outboxService{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "outbox_dispatcher")),
	}
}

var _ portssvc.OutboxSvcFacade = (*outboxService)(nil)
var _ EventSink = (*outboxService)(nil)

// AddEvent persists a PENDING outbox event. When the repository is bound to
// a unit-of-work transaction the row commits atomically with the business
// write.
func (s *outboxService) AddEvent(ctx context.Context, aggregateID, aggregateType, eventType string, payload []byte, version int) error {
	event := domain.OutboxEvent{
		EventID:       uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		Version:       version,
		Status:        domain.OutboxPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to stage outbox event: %w", err)
	}
	return nil
}

// AppendEvents is the unit-of-work flush target: buffered domain events are
// staged for delivery after their storage transaction has committed.
func (s *outboxService) AppendEvents(ctx context.Context, events []domain.Event) error {
	for _, evt := range events {
		if err := s.AddEvent(ctx, evt.AggregateID, evt.AggregateType, evt.EventType, evt.Payload, evt.Version); err != nil {
			return err
		}
	}
	return nil
}

// DispatchOnce runs one sweep: fetch pending events oldest-created-first and
// try a broker publish per event. Each event is attempted independently so
// one bad payload never blocks the backlog behind it.
func (s *outboxService) DispatchOnce(ctx context.Context) (int, error) {
	events, err := s.repo.FindPendingEvents(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending outbox events: %w", err)
	}

	published := 0
	for _, event := range events {
		if err := s.publishEvent(ctx, event); err != nil {
			s.recordFailure(ctx, event, err)
			continue
		}
		if err := s.repo.MarkProcessed(ctx, event.EventID, time.Now().UTC()); err != nil {
			s.logger.Error("Published event could not be marked processed; consumer dedup will absorb the redelivery",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()))
			continue
		}
		published++
	}
	return published, nil
}

func (s *outboxService) publishEvent(ctx context.Context, event domain.OutboxEvent) error {
	topic := s.topicFor(event)
	headers := map[string]string{
		"event_id":       event.EventID,
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
	}
	return s.publisher.Publish(ctx, topic, event.AggregateID, event.Payload, headers)
}

func (s *outboxService) recordFailure(ctx context.Context, event domain.OutboxEvent, pubErr error) {
	permanent := event.RetryCount+1 >= s.cfg.MaxRetries
	if permanent {
		s.logger.Error("Outbox event exhausted retries; marked failed for manual intervention",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Int("retry_count", event.RetryCount+1),
			slog.String("error", pubErr.Error()))
	} else {
		s.logger.Warn("Outbox publish failed; will retry",
			slog.String("event_id", event.EventID),
			slog.Int("retry_count", event.RetryCount+1),
			slog.String("error", pubErr.Error()))
	}
	if err := s.repo.RecordFailure(ctx, event.EventID, pubErr.Error(), permanent); err != nil {
		s.logger.Error("Failed to record outbox failure", slog.String("event_id", event.EventID), slog.String("error", err.Error()))
	}
}

func (s *outboxService) topicFor(event domain.OutboxEvent) string {
	topic := strings.ToLower(event.AggregateType)
	if s.cfg.TopicPrefix != "" {
		topic = s.cfg.TopicPrefix + "." + topic
	}
	return topic
}

// Run polls DispatchOnce on the configured interval until ctx is done.
func (s *outboxService) Run(ctx context.Context) {
	ctx = middleware.ContextWithLogger(ctx, s.logger)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info("Outbox dispatcher started", slog.Duration("poll_interval", s.cfg.PollInterval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := s.DispatchOnce(ctx); err != nil {
				s.logger.Error("Outbox sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
