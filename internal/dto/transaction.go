package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransactionRequest defines the data needed to record a user
// transaction, e.g. a 150.75 "Groceries" expense paid from a checking
// account.
type CreateTransactionRequest struct {
	Amount            decimal.Decimal `json:"amount" binding:"required,dgt0"`
	CurrencyCode      string          `json:"currencyCode" binding:"required,len=3"`
	Description       string          `json:"description" binding:"required"`
	CategoryAccountID string          `json:"categoryAccountID" binding:"required"` // Expense/revenue account
	SourceAccountID   string          `json:"sourceAccountID" binding:"required"`   // Asset/liability account
	Date              time.Time       `json:"date"`
}

// CreateTransactionResponse returns the workflow outcome for a transaction
// write: the saga that ran it and the journal it produced.
type CreateTransactionResponse struct {
	SagaID    string `json:"sagaID"`
	Status    string `json:"status"`
	JournalID string `json:"journalID,omitempty"`
}
