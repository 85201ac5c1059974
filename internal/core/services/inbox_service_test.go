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

type InboxServiceTestSuite struct {
	suite.Suite
	mockRepo *MockInboxRepository
	service  portssvc.InboxSvcFacade
}

func (suite *InboxServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockInboxRepository)
	suite.service = services.NewInboxService(suite.mockRepo, services.InboxConfig{MaxRetries: 3}, slog.Default())
}

func (suite *InboxServiceTestSuite) pendingMessage(retryCount int) domain.InboxMessage {
	return domain.InboxMessage{
		ID:         uuid.NewString(),
		MessageID:  "finflow.transaction-0-42",
		Source:     "finflow.transaction",
		EventType:  "transaction.created",
		Payload:    []byte(`{"journalID":"journal-1"}`),
		Status:     domain.InboxPending,
		RetryCount: retryCount,
	}
}

func (suite *InboxServiceTestSuite) TestReceiveMessage_NewMessageIsPending() {
	ctx := context.Background()

	suite.mockRepo.On("IsKnown", ctx, "msg-1").Return(false, nil).Once()
	suite.mockRepo.On("SaveMessage", ctx, mock.AnythingOfType("domain.InboxMessage")).Return(nil).Once()

	msg, err := suite.service.ReceiveMessage(ctx, "msg-1", "finflow.transaction", "transaction.created", []byte(`{}`))

	suite.Require().NoError(err)
	suite.Equal(domain.InboxPending, msg.Status)
	suite.Equal("msg-1", msg.MessageID)
	suite.NotEmpty(msg.ID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InboxServiceTestSuite) TestReceiveMessage_DuplicateIsRecordedNotHandled() {
	ctx := context.Background()

	handled := 0
	suite.service.RegisterHandler("transaction.created", func(ctx context.Context, msg domain.InboxMessage) error {
		handled++
		return nil
	})

	suite.mockRepo.On("IsKnown", ctx, "msg-1").Return(true, nil).Once()
	suite.mockRepo.On("SaveMessage", ctx, mock.AnythingOfType("domain.InboxMessage")).
		Run(func(args mock.Arguments) {
			saved := args.Get(1).(domain.InboxMessage)
			suite.Equal(domain.InboxDuplicate, saved.Status)
		}).
		Return(nil).Once()

	msg, err := suite.service.ReceiveMessage(ctx, "msg-1", "finflow.transaction", "transaction.created", []byte(`{}`))

	suite.Require().NoError(err)
	suite.Equal(domain.InboxDuplicate, msg.Status)
	suite.Equal(0, handled)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InboxServiceTestSuite) TestReceiveMessage_RedeliveryBeforeProcessingIsDuplicate() {
	ctx := context.Background()

	invocations := 0
	suite.service.RegisterHandler("transaction.created", func(ctx context.Context, got domain.InboxMessage) error {
		invocations++
		return nil
	})

	// First delivery lands as PENDING.
	suite.mockRepo.On("IsKnown", ctx, "msg-1").Return(false, nil).Once()
	var first domain.InboxMessage
	suite.mockRepo.On("SaveMessage", ctx, mock.AnythingOfType("domain.InboxMessage")).
		Run(func(args mock.Arguments) { first = args.Get(1).(domain.InboxMessage) }).
		Return(nil).Once()
	msg, err := suite.service.ReceiveMessage(ctx, "msg-1", "finflow.transaction", "transaction.created", []byte(`{}`))
	suite.Require().NoError(err)
	suite.Equal(domain.InboxPending, msg.Status)

	// The broker redelivers before the first copy is processed. The pending
	// row already counts as seen, so the copy is recorded as DUPLICATE.
	suite.mockRepo.On("IsKnown", ctx, "msg-1").Return(true, nil).Once()
	suite.mockRepo.On("SaveMessage", ctx, mock.AnythingOfType("domain.InboxMessage")).
		Run(func(args mock.Arguments) {
			saved := args.Get(1).(domain.InboxMessage)
			suite.Equal(domain.InboxDuplicate, saved.Status)
		}).
		Return(nil).Once()
	redelivered, err := suite.service.ReceiveMessage(ctx, "msg-1", "finflow.transaction", "transaction.created", []byte(`{}`))
	suite.Require().NoError(err)
	suite.Equal(domain.InboxDuplicate, redelivered.Status)

	// Only the first copy is workable: the handler fires exactly once.
	suite.mockRepo.On("FindPendingMessages", ctx, mock.AnythingOfType("int")).Return([]domain.InboxMessage{first}, nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, first.ID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	handled, err := suite.service.ProcessOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(1, handled)
	suite.Equal(1, invocations)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InboxServiceTestSuite) TestProcessOnce_HandlerInvokedOncePerMessage() {
	ctx := context.Background()
	msg := suite.pendingMessage(0)

	invocations := 0
	suite.service.RegisterHandler("transaction.created", func(ctx context.Context, got domain.InboxMessage) error {
		invocations++
		suite.Equal(msg.MessageID, got.MessageID)
		return nil
	})

	suite.mockRepo.On("FindPendingMessages", ctx, mock.AnythingOfType("int")).Return([]domain.InboxMessage{msg}, nil).Once()
	suite.mockRepo.On("MarkProcessed", ctx, msg.ID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	handled, err := suite.service.ProcessOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(1, handled)
	suite.Equal(1, invocations)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InboxServiceTestSuite) TestProcessOnce_HandlerFailureStaysPending() {
	ctx := context.Background()
	msg := suite.pendingMessage(0)

	suite.service.RegisterHandler("transaction.created", func(ctx context.Context, got domain.InboxMessage) error {
		return assert.AnError
	})

	suite.mockRepo.On("FindPendingMessages", ctx, mock.AnythingOfType("int")).Return([]domain.InboxMessage{msg}, nil).Once()
	suite.mockRepo.On("RecordFailure", ctx, msg.ID, mock.AnythingOfType("string"), false).Return(nil).Once()

	handled, err := suite.service.ProcessOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(0, handled)
	suite.mockRepo.AssertNotCalled(suite.T(), "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *InboxServiceTestSuite) TestProcessOnce_ThirdFailureIsPermanent() {
	ctx := context.Background()
	msg := suite.pendingMessage(2)

	suite.service.RegisterHandler("transaction.created", func(ctx context.Context, got domain.InboxMessage) error {
		return assert.AnError
	})

	suite.mockRepo.On("FindPendingMessages", ctx, mock.AnythingOfType("int")).Return([]domain.InboxMessage{msg}, nil).Once()
	suite.mockRepo.On("RecordFailure", ctx, msg.ID, mock.AnythingOfType("string"), true).Return(nil).Once()

	handled, err := suite.service.ProcessOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(0, handled)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *InboxServiceTestSuite) TestProcessOnce_MissingHandlerCountsAsFailure() {
	ctx := context.Background()
	msg := suite.pendingMessage(0)
	msg.EventType = "unknown.event"

	suite.mockRepo.On("FindPendingMessages", ctx, mock.AnythingOfType("int")).Return([]domain.InboxMessage{msg}, nil).Once()
	suite.mockRepo.On("RecordFailure", ctx, msg.ID, mock.AnythingOfType("string"), false).Return(nil).Once()

	handled, err := suite.service.ProcessOnce(ctx)

	suite.Require().NoError(err)
	suite.Equal(0, handled)
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestInboxServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InboxServiceTestSuite))
}
