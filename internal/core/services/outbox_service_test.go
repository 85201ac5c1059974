package services_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/core/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// outboxFacade is the staging facade plus the unit-of-work sink the outbox
// service doubles as.
type outboxFacade interface {
	portssvc.OutboxSvcFacade
	services.EventSink
}

type OutboxServiceTestSuite struct {
	suite.Suite
	mockRepo      *MockOutboxRepository
	mockPublisher *MockPublisher
	service       outboxFacade
}

func (suite *OutboxServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockOutboxRepository)
	suite.mockPublisher = new(MockPublisher)
	suite.service = services.NewOutboxService(suite.mockRepo, suite.mockPublisher, services.OutboxConfig{
		MaxRetries:  3,
		TopicPrefix: "finflow",
	}, slog.Default())
}

func (suite *OutboxServiceTestSuite) pendingEvent(retryCount int) domain.OutboxEvent {
	return domain.OutboxEvent{
		EventID:       uuid.NewString(),
		AggregateID:   "journal-1",
		AggregateType: "transaction",
		EventType:     "transaction.created",
		Payload:       []byte(`{"journalID":"journal-1"}`),
		Version:       1,
		Status:        domain.OutboxPending,
		RetryCount:    retryCount,
	}
}

func (suite *OutboxServiceTestSuite) TestAddEvent_StagesPending() {
	ctx := context.Background()

	suite.mockRepo.On("SaveEvent", ctx, mock.AnythingOfType("domain.OutboxEvent")).
		Run(func(args mock.Arguments) {
			event := args.Get(1).(domain.OutboxEvent)
			suite.Equal(domain.OutboxPending, event.Status)
			suite.Equal("transaction.created", event.EventType)
			suite.Equal(0, event.RetryCount)
			suite.NotEmpty(event.EventID)
		}).
		Return(nil).Once()

	err := suite.service.AddEvent(ctx, "journal-1", "transaction", "transaction.created", []byte(`{}`), 1)

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *OutboxServiceTestSuite) TestDispatchOnce_PublishesAndMarksProcessed() {
	ctx := context.Background()
	event := suite.pendingEvent(0)

	suite.mockRepo.On("FindPendingEvents", ctx, mock.AnythingOfType("int")).Return([]domain.OutboxEvent{event}, nil).Once()
	suite.mockPublisher.On("Publish", ctx, "finflow.transaction", event.AggregateID, event.Payload, mock.AnythingOfType("map[string]string")).
		Run(func(args mock.Arguments) {
			headers := args.Get(4).(map[string]string)
			suite.Equal(event.EventID, headers["event_id"])
			suite.Equal(event.EventType, headers["event_type"])
		}).
		Return(nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, event.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	published, err := suite.service.DispatchOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(1, published)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *OutboxServiceTestSuite) TestDispatchOnce_RetryableFailureStaysPending() {
	ctx := context.Background()
	event := suite.pendingEvent(0)

	suite.mockRepo.On("FindPendingEvents", ctx, mock.AnythingOfType("int")).Return([]domain.OutboxEvent{event}, nil).Once()
	suite.mockPublisher.On("Publish", ctx, "finflow.transaction", event.AggregateID, event.Payload, mock.Anything).Return(assert.AnError).Once()
	// First failure: below the ceiling, not permanent.
	suite.mockRepo.On("RecordFailure", ctx, event.EventID, mock.AnythingOfType("string"), false).Return(nil).Once()

	published, err := suite.service.DispatchOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(0, published)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *OutboxServiceTestSuite) TestDispatchOnce_ThirdFailureIsPermanent() {
	ctx := context.Background()
	event := suite.pendingEvent(2)

	suite.mockRepo.On("FindPendingEvents", ctx, mock.AnythingOfType("int")).Return([]domain.OutboxEvent{event}, nil).Once()
	suite.mockPublisher.On("Publish", ctx, "finflow.transaction", event.AggregateID, event.Payload, mock.Anything).Return(assert.AnError).Once()
	suite.mockRepo.On("RecordFailure", ctx, event.EventID, mock.AnythingOfType("string"), true).Return(nil).Once()

	published, err := suite.service.DispatchOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(0, published)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *OutboxServiceTestSuite) TestDispatchOnce_SucceedsAfterEarlierFailures() {
	ctx := context.Background()
	event := suite.pendingEvent(2)

	suite.mockRepo.On("FindPendingEvents", ctx, mock.AnythingOfType("int")).Return([]domain.OutboxEvent{event}, nil).Once()
	suite.mockPublisher.On("Publish", ctx, "finflow.transaction", event.AggregateID, event.Payload, mock.Anything).Return(nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, event.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	published, err := suite.service.DispatchOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(1, published)
	suite.mockRepo.AssertNotCalled(suite.T(), "RecordFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *OutboxServiceTestSuite) TestDispatchOnce_OneBadEventDoesNotBlockOthers() {
	ctx := context.Background()
	bad := suite.pendingEvent(0)
	good := suite.pendingEvent(0)
	good.EventID = uuid.NewString()
	good.AggregateID = "journal-2"

	suite.mockRepo.On("FindPendingEvents", ctx, mock.AnythingOfType("int")).Return([]domain.OutboxEvent{bad, good}, nil).Once()
	suite.mockPublisher.On("Publish", ctx, "finflow.transaction", bad.AggregateID, bad.Payload, mock.Anything).Return(assert.AnError).Once()
	suite.mockRepo.On("RecordFailure", ctx, bad.EventID, mock.AnythingOfType("string"), false).Return(nil).Once()
	suite.mockPublisher.On("Publish", ctx, "finflow.transaction", good.AggregateID, good.Payload, mock.Anything).Return(nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, good.EventID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	published, err := suite.service.DispatchOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(1, published)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *OutboxServiceTestSuite) TestAppendEvents_StagesEachBufferedEvent() {
	ctx := context.Background()
	events := []domain.Event{
		{AggregateID: "j1", AggregateType: "journal", EventType: "journal.posted", Payload: []byte(`{}`), Version: 1},
		{AggregateID: "j2", AggregateType: "journal", EventType: "journal.posted", Payload: []byte(`{}`), Version: 1},
	}

	suite.mockRepo.On("SaveEvent", ctx, mock.AnythingOfType("domain.OutboxEvent")).Return(nil).Twice()

	err := suite.service.AppendEvents(ctx, events)

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestOutboxServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OutboxServiceTestSuite))
}
