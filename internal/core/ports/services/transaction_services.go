package services

import (
	"context"

	"github.com/finflowhq/finflow_backend/internal/dto"
)

// TransactionSvcFacade is the write-side entry point for user transactions.
// Creating a transaction runs the process-transaction workflow through the
// saga orchestrator.
type TransactionSvcFacade interface {
	CreateTransaction(ctx context.Context, req dto.CreateTransactionRequest, userID string) (*dto.CreateTransactionResponse, error)
	ReverseTransaction(ctx context.Context, journalID string, userID string) (*dto.CreateTransactionResponse, error)
}
