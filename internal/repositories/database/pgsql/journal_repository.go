package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxJournalRepository struct {
	BaseRepository
}

// newPgxJournalRepository creates a new repository for journal and ledger
// entry data.
func newPgxJournalRepository(pool *pgxpool.Pool) portsrepo.JournalRepositoryFacade {
	return &PgxJournalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

// SaveJournal persists a journal and its ledger entries. Entry inserts are
// batched; the whole write shares the bound unit-of-work transaction when
// one is active.
func (r *PgxJournalRepository) SaveJournal(ctx context.Context, journal domain.JournalEntry) error {
	journalQuery := `
		INSERT INTO journals (journal_id, journal_date, description, currency_code, status, original_journal_id, reversing_journal_id, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	currency := ""
	if len(journal.Entries) > 0 {
		currency = journal.Entries[0].CurrencyCode
	}
	_, err := r.q(ctx).Exec(ctx, journalQuery,
		journal.JournalID,
		journal.JournalDate,
		journal.Description,
		currency,
		string(journal.Status),
		journal.OriginalJournalID,
		journal.ReversingJournalID,
		journal.CreatedAt,
		journal.CreatedBy,
		journal.LastUpdatedAt,
		journal.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert journal "+journal.JournalID, err)
	}

	batch := &pgx.Batch{}
	entryQuery := `
		INSERT INTO ledger_entries (entry_id, journal_id, account_id, account_type, entry_type, amount, currency_code, reference_id, reference_type, notes, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	for _, e := range journal.Entries {
		batch.Queue(entryQuery,
			e.EntryID,
			e.JournalID,
			e.AccountID,
			string(e.AccountType),
			string(e.EntryType),
			e.Amount,
			e.CurrencyCode,
			nullableString(e.ReferenceID),
			nullableString(e.ReferenceType),
			e.Notes,
			e.CreatedAt,
			e.CreatedBy,
			e.LastUpdatedAt,
			e.LastUpdatedBy,
		)
	}
	results := r.q(ctx).SendBatch(ctx, batch)
	defer results.Close()
	for range journal.Entries {
		if _, err := results.Exec(); err != nil {
			return apperrors.NewAppError(500, "failed to insert ledger entry for journal "+journal.JournalID, err)
		}
	}
	return nil
}

// FindJournalByID retrieves a journal together with its ledger entries.
func (r *PgxJournalRepository) FindJournalByID(ctx context.Context, journalID string) (*domain.JournalEntry, error) {
	query := `
		SELECT journal_id, journal_date, description, status, original_journal_id, reversing_journal_id, created_at, created_by, last_updated_at, last_updated_by
		FROM journals
		WHERE journal_id = $1;
	`
	var j domain.JournalEntry
	err := r.q(ctx).QueryRow(ctx, query, journalID).Scan(
		&j.JournalID,
		&j.JournalDate,
		&j.Description,
		&j.Status,
		&j.OriginalJournalID,
		&j.ReversingJournalID,
		&j.CreatedAt,
		&j.CreatedBy,
		&j.LastUpdatedAt,
		&j.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: journal %s", apperrors.ErrNotFound, journalID)
		}
		return nil, apperrors.NewAppError(500, "failed to find journal "+journalID, err)
	}

	entries, err := r.FindEntriesByJournalID(ctx, journalID)
	if err != nil {
		return nil, err
	}
	j.Entries = entries
	return &j, nil
}

// FindEntriesByJournalID retrieves all ledger entries for a single journal.
func (r *PgxJournalRepository) FindEntriesByJournalID(ctx context.Context, journalID string) ([]domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, journal_id, account_id, account_type, entry_type, amount, currency_code, reference_id, reference_type, notes, created_at, created_by, last_updated_at, last_updated_by
		FROM ledger_entries
		WHERE journal_id = $1
		ORDER BY entry_id;
	`
	rows, err := r.q(ctx).Query(ctx, query, journalID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query ledger entries for journal "+journalID, err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var refID, refType sql.NullString
		if err := rows.Scan(
			&e.EntryID,
			&e.JournalID,
			&e.AccountID,
			&e.AccountType,
			&e.EntryType,
			&e.Amount,
			&e.CurrencyCode,
			&refID,
			&refType,
			&e.Notes,
			&e.CreatedAt,
			&e.CreatedBy,
			&e.LastUpdatedAt,
			&e.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan ledger entry row", err)
		}
		e.ReferenceID = refID.String
		e.ReferenceType = refType.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read ledger entry rows", err)
	}
	return entries, nil
}

// UpdateJournalStatus updates the status and reversal linkage of a journal.
func (r *PgxJournalRepository) UpdateJournalStatus(ctx context.Context, journalID string, status domain.JournalStatus, reversingJournalID *string, updatedAt time.Time) error {
	query := `
		UPDATE journals
		SET status = $1, reversing_journal_id = COALESCE($2, reversing_journal_id), last_updated_at = $3
		WHERE journal_id = $4;
	`
	tag, err := r.q(ctx).Exec(ctx, query, string(status), reversingJournalID, updatedAt, journalID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update journal status for "+journalID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: journal %s", apperrors.ErrNotFound, journalID)
	}
	return nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
