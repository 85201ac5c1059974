package repositories

import (
	"context"
	"time"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalReader defines read operations for journal data.
type JournalReader interface {
	// FindJournalByID retrieves a journal together with its ledger entries.
	FindJournalByID(ctx context.Context, journalID string) (*domain.JournalEntry, error)

	// FindEntriesByJournalID retrieves all ledger entries for a single journal.
	FindEntriesByJournalID(ctx context.Context, journalID string) ([]domain.LedgerEntry, error)
}

// JournalWriter defines write operations for journal data.
type JournalWriter interface {
	// SaveJournal persists a journal and its ledger entries.
	SaveJournal(ctx context.Context, journal domain.JournalEntry) error

	// UpdateJournalStatus updates the status and reversal linkage of a journal.
	UpdateJournalStatus(ctx context.Context, journalID string, status domain.JournalStatus, reversingJournalID *string, updatedAt time.Time) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces.
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
}

// AccountReader defines read operations for account data.
type AccountReader interface {
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
}

// AccountWriter defines write operations for account data.
type AccountWriter interface {
	SaveAccount(ctx context.Context, account domain.Account) error

	// ApplyBalanceChanges adds the signed deltas to the stored balances of
	// the given accounts, locking the rows for the duration of the update.
	ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, updatedBy string, updatedAt time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces.
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
