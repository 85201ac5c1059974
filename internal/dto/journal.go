package dto

import (
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateLedgerEntryRequest is a single line of a journal creation request.
type CreateLedgerEntryRequest struct {
	AccountID     string           `json:"accountID" binding:"required"`
	Amount        decimal.Decimal  `json:"amount" binding:"required,dgt0"`
	EntryType     domain.EntryType `json:"entryType" binding:"required,oneof=DEBIT CREDIT"`
	Notes         string           `json:"notes"`
	ReferenceID   string           `json:"referenceID"`
	ReferenceType string           `json:"referenceType"`
}

// CreateJournalRequest defines the data needed to create a journal.
type CreateJournalRequest struct {
	Date         time.Time                  `json:"date" binding:"required"`
	Description  string                     `json:"description" binding:"required"`
	CurrencyCode string                     `json:"currencyCode" binding:"required,len=3"`
	Entries      []CreateLedgerEntryRequest `json:"entries" binding:"required,min=2,dive"`
}

// LedgerEntryResponse defines the data returned for a single ledger entry.
type LedgerEntryResponse struct {
	EntryID      string          `json:"entryID"`
	AccountID    string          `json:"accountID"`
	Amount       decimal.Decimal `json:"amount"`
	EntryType    string          `json:"entryType"`
	CurrencyCode string          `json:"currencyCode"`
}

// JournalResponse defines the data returned for a journal entry.
type JournalResponse struct {
	JournalID   string                `json:"journalID"`
	Date        time.Time             `json:"date"`
	Description string                `json:"description"`
	Status      string                `json:"status"`
	Entries     []LedgerEntryResponse `json:"entries"`
	CreatedAt   time.Time             `json:"createdAt"`
	CreatedBy   string                `json:"createdBy"`
}

// ToJournalResponse converts a domain.JournalEntry to JournalResponse.
func ToJournalResponse(j *domain.JournalEntry) JournalResponse {
	entries := make([]LedgerEntryResponse, len(j.Entries))
	for i, e := range j.Entries {
		entries[i] = LedgerEntryResponse{
			EntryID:      e.EntryID,
			AccountID:    e.AccountID,
			Amount:       e.Amount,
			EntryType:    string(e.EntryType),
			CurrencyCode: e.CurrencyCode,
		}
	}
	return JournalResponse{
		JournalID:   j.JournalID,
		Date:        j.JournalDate,
		Description: j.Description,
		Status:      string(j.Status),
		Entries:     entries,
		CreatedAt:   j.CreatedAt,
		CreatedBy:   j.CreatedBy,
	}
}
