package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	portssvc "github.com/finflowhq/finflow_backend/internal/core/ports/services"
	"github.com/finflowhq/finflow_backend/internal/dto"
	"github.com/finflowhq/finflow_backend/internal/middleware"
)

// Sentinels chain to the apperrors base errors so handlers can map them to
// HTTP statuses without knowing each one.
var (
	ErrJournalUnbalanced  = fmt.Errorf("%w: journal entries do not balance per currency", apperrors.ErrValidation)
	ErrJournalMinEntries  = fmt.Errorf("%w: journal must have at least two ledger entries", apperrors.ErrValidation)
	ErrJournalMinAccounts = fmt.Errorf("%w: journal must affect at least two different accounts", apperrors.ErrValidation)
	ErrAccountNotFound    = fmt.Errorf("%w: account not found", apperrors.ErrValidation)
	ErrCurrencyMismatch   = fmt.Errorf("%w: account currency does not match journal currency", apperrors.ErrValidation)
	ErrDescriptionMissing = fmt.Errorf("%w: journal description is required", apperrors.ErrValidation)
	ErrNotDraft           = fmt.Errorf("%w: journal must be draft to be posted", apperrors.ErrInvalidState)
	ErrNotPosted          = fmt.Errorf("%w: journal must be posted to be reversed", apperrors.ErrInvalidState)
	ErrAlreadyReversed    = fmt.Errorf("%w: journal has already been reversed", apperrors.ErrInvalidState)
)

// ledgerService turns financial events into balanced double-entry journals.
type ledgerService struct {
	accountRepo portsrepo.AccountRepositoryFacade
	journalRepo portsrepo.JournalRepositoryFacade
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(journalRepo portsrepo.JournalRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade) portssvc.LedgerSvcFacade {
	return &ledgerService{
		accountRepo: accountRepo,
		journalRepo: journalRepo,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// CreateJournalEntry validates the requested entries and persists a DRAFT
// journal. Validation order: shape checks, per-entry checks, account checks,
// then the per-currency balance invariant.
func (s *ledgerService) CreateJournalEntry(ctx context.Context, req dto.CreateJournalRequest, creatorUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(req.Entries) < 2 {
		return nil, ErrJournalMinEntries
	}

	accountSet := make(map[string]bool)
	for _, e := range req.Entries {
		accountSet[e.AccountID] = true
	}
	if len(accountSet) < 2 {
		return nil, ErrJournalMinAccounts
	}

	if req.Description == "" {
		return nil, ErrDescriptionMissing
	}

	accountIDs := make([]string, 0, len(accountSet))
	for id := range accountSet {
		accountIDs = append(accountIDs, id)
	}
	accountsMap, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		logger.Error("Failed to fetch accounts for journal creation", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range accountIDs {
		acc, found := accountsMap[id]
		if !found {
			return nil, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		if !acc.IsActive {
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, id)
		}
		if acc.CurrencyCode != req.CurrencyCode {
			return nil, fmt.Errorf("%w: account currency %s does not match journal currency %s for account %s",
				ErrCurrencyMismatch, acc.CurrencyCode, req.CurrencyCode, id)
		}
	}

	now := time.Now().UTC()
	journalID := uuid.NewString()

	entries := make([]domain.LedgerEntry, len(req.Entries))
	for i, entryReq := range req.Entries {
		entries[i] = domain.LedgerEntry{
			EntryID:       uuid.NewString(),
			JournalID:     journalID,
			AccountID:     entryReq.AccountID,
			AccountType:   accountsMap[entryReq.AccountID].AccountType,
			EntryType:     entryReq.EntryType,
			Amount:        entryReq.Amount,
			CurrencyCode:  req.CurrencyCode,
			ReferenceID:   entryReq.ReferenceID,
			ReferenceType: entryReq.ReferenceType,
			Notes:         entryReq.Notes,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     creatorUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: creatorUserID,
			},
		}
		if err := entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}

	journal := domain.JournalEntry{
		JournalID:   journalID,
		JournalDate: req.Date,
		Description: req.Description,
		Status:      domain.Draft,
		Entries:     entries,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if !journal.IsBalanced() {
		return nil, fmt.Errorf("%w: journal %s", ErrJournalUnbalanced, journalID)
	}

	if err := s.journalRepo.SaveJournal(ctx, journal); err != nil {
		logger.Error("Failed to save journal", slog.String("journal_id", journalID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save journal: %w", err)
	}

	logger.Info("Journal created", slog.String("journal_id", journalID), slog.Int("entry_count", len(entries)))
	return &journal, nil
}

// PostJournalEntry transitions a draft journal to POSTED and applies its net
// balance changes to the affected accounts. Balance is re-confirmed before
// the transition even though creation already validated it.
func (s *ledgerService) PostJournalEntry(ctx context.Context, journalID string, userID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	journal, err := s.journalRepo.FindJournalByID(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if journal.Status != domain.Draft {
		return nil, fmt.Errorf("%w: journal %s is %s", ErrNotDraft, journalID, journal.Status)
	}
	if !journal.IsBalanced() {
		return nil, fmt.Errorf("%w: journal %s failed balance re-check", ErrJournalUnbalanced, journalID)
	}

	changes, err := journal.BalanceChanges()
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance changes: %w", err)
	}

	now := time.Now().UTC()
	if err := s.accountRepo.ApplyBalanceChanges(ctx, changes, userID, now); err != nil {
		logger.Error("Failed to apply balance changes", slog.String("journal_id", journalID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to apply balance changes: %w", err)
	}
	if err := s.journalRepo.UpdateJournalStatus(ctx, journalID, domain.Posted, nil, now); err != nil {
		return nil, fmt.Errorf("failed to mark journal posted: %w", err)
	}

	journal.Status = domain.Posted
	journal.LastUpdatedAt = now
	journal.LastUpdatedBy = userID
	logger.Info("Journal posted", slog.String("journal_id", journalID))
	return journal, nil
}

// CreateReversingEntry posts a new journal with every entry's type flipped.
// The original journal is linked and marked REVERSED; its rows are never
// mutated.
func (s *ledgerService) CreateReversingEntry(ctx context.Context, journalID string, userID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.journalRepo.FindJournalByID(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if original.Status == domain.Reversed {
		return nil, fmt.Errorf("%w: journal %s", ErrAlreadyReversed, journalID)
	}
	if original.Status != domain.Posted {
		return nil, fmt.Errorf("%w: journal %s is %s", ErrNotPosted, journalID, original.Status)
	}

	now := time.Now().UTC()
	reversalID := uuid.NewString()

	entries := make([]domain.LedgerEntry, len(original.Entries))
	for i, e := range original.Entries {
		entries[i] = e
		entries[i].EntryID = uuid.NewString()
		entries[i].JournalID = reversalID
		entries[i].EntryType = e.EntryType.Opposite()
		entries[i].AuditFields = domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		}
	}

	reversal := domain.JournalEntry{
		JournalID:         reversalID,
		JournalDate:       now,
		Description:       fmt.Sprintf("Reversal of journal %s", journalID),
		Status:            domain.Draft,
		Entries:           entries,
		OriginalJournalID: &journalID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	if err := s.journalRepo.SaveJournal(ctx, reversal); err != nil {
		return nil, fmt.Errorf("failed to save reversing journal: %w", err)
	}

	changes, err := reversal.BalanceChanges()
	if err != nil {
		return nil, fmt.Errorf("failed to compute reversal balance changes: %w", err)
	}
	if err := s.accountRepo.ApplyBalanceChanges(ctx, changes, userID, now); err != nil {
		return nil, fmt.Errorf("failed to apply reversal balance changes: %w", err)
	}
	if err := s.journalRepo.UpdateJournalStatus(ctx, reversalID, domain.Posted, nil, now); err != nil {
		return nil, fmt.Errorf("failed to post reversing journal: %w", err)
	}
	if err := s.journalRepo.UpdateJournalStatus(ctx, journalID, domain.Reversed, &reversalID, now); err != nil {
		return nil, fmt.Errorf("failed to mark original journal reversed: %w", err)
	}

	reversal.Status = domain.Posted
	logger.Info("Journal reversed",
		slog.String("original_journal_id", journalID),
		slog.String("reversing_journal_id", reversalID))
	return &reversal, nil
}

// GetJournalByID retrieves a journal with its entries.
func (s *ledgerService) GetJournalByID(ctx context.Context, journalID string) (*domain.JournalEntry, error) {
	return s.journalRepo.FindJournalByID(ctx, journalID)
}
