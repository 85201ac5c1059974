package services

import (
	"context"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/finflowhq/finflow_backend/internal/dto"
)

// LedgerSvcFacade turns financial events into balanced double-entry
// journals and enforces the accounting invariant.
type LedgerSvcFacade interface {
	// CreateJournalEntry validates the entries and persists a DRAFT journal.
	CreateJournalEntry(ctx context.Context, req dto.CreateJournalRequest, creatorUserID string) (*domain.JournalEntry, error)

	// PostJournalEntry transitions a draft journal to POSTED after
	// re-confirming balance.
	PostJournalEntry(ctx context.Context, journalID string, userID string) (*domain.JournalEntry, error)

	// CreateReversingEntry posts a new equal-and-opposite journal for a
	// posted journal; the original is linked and marked REVERSED, never
	// mutated.
	CreateReversingEntry(ctx context.Context, journalID string, userID string) (*domain.JournalEntry, error)

	// GetJournalByID retrieves a journal with its entries.
	GetJournalByID(ctx context.Context, journalID string) (*domain.JournalEntry, error)
}
