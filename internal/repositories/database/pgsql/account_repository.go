package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finflowhq/finflow_backend/internal/apperrors"
	"github.com/finflowhq/finflow_backend/internal/core/domain"
	portsrepo "github.com/finflowhq/finflow_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryFacade {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (account_id, name, account_type, currency_code, description, is_active, balance, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.q(ctx).Exec(ctx, query,
		account.AccountID,
		account.Name,
		string(account.AccountType),
		account.CurrencyCode,
		account.Description,
		account.IsActive,
		account.Balance,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert account "+account.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves a single account.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
		SELECT account_id, name, account_type, currency_code, description, is_active, balance, created_at, created_by, last_updated_at, last_updated_by
		FROM accounts
		WHERE account_id = $1;
	`
	var acc domain.Account
	err := r.q(ctx).QueryRow(ctx, query, accountID).Scan(
		&acc.AccountID,
		&acc.Name,
		&acc.AccountType,
		&acc.CurrencyCode,
		&acc.Description,
		&acc.IsActive,
		&acc.Balance,
		&acc.CreatedAt,
		&acc.CreatedBy,
		&acc.LastUpdatedAt,
		&acc.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		return nil, apperrors.NewAppError(500, "failed to find account "+accountID, err)
	}
	return &acc, nil
}

// FindAccountsByIDs retrieves multiple accounts keyed by id.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	query := `
		SELECT account_id, name, account_type, currency_code, description, is_active, balance, created_at, created_by, last_updated_at, last_updated_by
		FROM accounts
		WHERE account_id = ANY($1);
	`
	rows, err := r.q(ctx).Query(ctx, query, accountIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account)
	for rows.Next() {
		var acc domain.Account
		if err := rows.Scan(
			&acc.AccountID,
			&acc.Name,
			&acc.AccountType,
			&acc.CurrencyCode,
			&acc.Description,
			&acc.IsActive,
			&acc.Balance,
			&acc.CreatedAt,
			&acc.CreatedBy,
			&acc.LastUpdatedAt,
			&acc.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts[acc.AccountID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to read account rows", err)
	}
	return accounts, nil
}

// ApplyBalanceChanges adds the signed deltas to the stored balances. Rows
// are locked in a deterministic order to avoid deadlocks between concurrent
// journals touching the same accounts.
func (r *PgxAccountRepository) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	accountIDs := make([]string, 0, len(changes))
	for id := range changes {
		accountIDs = append(accountIDs, id)
	}

	lockQuery := `
		SELECT account_id FROM accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE;
	`
	rows, err := r.q(ctx).Query(ctx, lockQuery, accountIDs)
	if err != nil {
		return apperrors.NewAppError(500, "failed to lock accounts for update", err)
	}
	locked := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return apperrors.NewAppError(500, "failed to scan locked account row", err)
		}
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperrors.NewAppError(500, "failed to lock accounts for update", err)
	}
	if locked != len(accountIDs) {
		return fmt.Errorf("%w: %d of %d accounts missing", apperrors.ErrNotFound, len(accountIDs)-locked, len(accountIDs))
	}

	batch := &pgx.Batch{}
	updateQuery := `
		UPDATE accounts
		SET balance = balance + $1, last_updated_at = $2, last_updated_by = $3
		WHERE account_id = $4;
	`
	for id, delta := range changes {
		batch.Queue(updateQuery, delta, updatedAt, updatedBy, id)
	}
	results := r.q(ctx).SendBatch(ctx, batch)
	defer results.Close()
	for range changes {
		if _, err := results.Exec(); err != nil {
			return apperrors.NewAppError(500, "failed to update account balance", err)
		}
	}
	return nil
}
