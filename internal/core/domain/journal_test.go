package domain_test

import (
	"testing"

	"github.com/finflowhq/finflow_backend/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(account string, accType domain.AccountType, entryType domain.EntryType, amount string, currency string) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:      account + "-" + string(entryType),
		AccountID:    account,
		AccountType:  accType,
		EntryType:    entryType,
		Amount:       decimal.RequireFromString(amount),
		CurrencyCode: currency,
	}
}

func TestJournalEntry_IsBalanced(t *testing.T) {
	tests := []struct {
		name    string
		entries []domain.LedgerEntry
		want    bool
	}{
		{
			name: "balanced single currency",
			entries: []domain.LedgerEntry{
				entry("expenses", domain.Expense, domain.Debit, "150.75", "USD"),
				entry("checking", domain.Asset, domain.Credit, "150.75", "USD"),
			},
			want: true,
		},
		{
			name: "unbalanced single currency",
			entries: []domain.LedgerEntry{
				entry("expenses", domain.Expense, domain.Debit, "150.75", "USD"),
				entry("checking", domain.Asset, domain.Credit, "150.00", "USD"),
			},
			want: false,
		},
		{
			name: "within minor unit tolerance",
			entries: []domain.LedgerEntry{
				entry("expenses", domain.Expense, domain.Debit, "100.004", "USD"),
				entry("checking", domain.Asset, domain.Credit, "100.00", "USD"),
			},
			want: true,
		},
		{
			name: "balanced per currency across two currencies",
			entries: []domain.LedgerEntry{
				entry("expenses", domain.Expense, domain.Debit, "100", "USD"),
				entry("checking", domain.Asset, domain.Credit, "100", "USD"),
				entry("expenses-eur", domain.Expense, domain.Debit, "50", "EUR"),
				entry("savings-eur", domain.Asset, domain.Credit, "50", "EUR"),
			},
			want: true,
		},
		{
			name: "each currency balances independently",
			entries: []domain.LedgerEntry{
				entry("expenses", domain.Expense, domain.Debit, "100", "USD"),
				entry("savings-eur", domain.Asset, domain.Credit, "100", "EUR"),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := domain.JournalEntry{Entries: tt.entries}
			assert.Equal(t, tt.want, j.IsBalanced())
		})
	}
}

func TestLedgerEntry_Validate(t *testing.T) {
	valid := entry("checking", domain.Asset, domain.Debit, "10", "USD")
	assert.NoError(t, valid.Validate())

	negative := valid
	negative.Amount = decimal.NewFromInt(-1)
	assert.Error(t, negative.Validate())

	zero := valid
	zero.Amount = decimal.Zero
	assert.Error(t, zero.Validate())

	badAccount := valid
	badAccount.AccountType = "SOMETHING"
	assert.Error(t, badAccount.Validate())

	badEntry := valid
	badEntry.EntryType = "TRANSFER"
	assert.Error(t, badEntry.Validate())

	danglingRef := valid
	danglingRef.ReferenceID = "txn-1"
	assert.Error(t, danglingRef.Validate(), "reference type must accompany reference id")

	pairedRef := valid
	pairedRef.ReferenceID = "txn-1"
	pairedRef.ReferenceType = "transaction"
	assert.NoError(t, pairedRef.Validate())
}

func TestLedgerEntry_SignedAmount(t *testing.T) {
	tests := []struct {
		name      string
		accType   domain.AccountType
		entryType domain.EntryType
		want      string
	}{
		{"debit to asset increases", domain.Asset, domain.Debit, "10"},
		{"credit to asset decreases", domain.Asset, domain.Credit, "-10"},
		{"debit to expense increases", domain.Expense, domain.Debit, "10"},
		{"credit to liability increases", domain.Liability, domain.Credit, "10"},
		{"debit to liability decreases", domain.Liability, domain.Debit, "-10"},
		{"credit to revenue increases", domain.Revenue, domain.Credit, "10"},
		{"debit to equity decreases", domain.Equity, domain.Debit, "-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry("acc", tt.accType, tt.entryType, "10", "USD")
			got, err := e.SignedAmount()
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}

	bad := entry("acc", "BOGUS", domain.Debit, "10", "USD")
	_, err := bad.SignedAmount()
	assert.Error(t, err)
}

func TestJournalEntry_BalanceChanges(t *testing.T) {
	j := domain.JournalEntry{Entries: []domain.LedgerEntry{
		entry("expenses", domain.Expense, domain.Debit, "150.75", "USD"),
		entry("checking", domain.Asset, domain.Credit, "150.75", "USD"),
	}}

	changes, err := j.BalanceChanges()
	require.NoError(t, err)
	assert.True(t, changes["expenses"].Equal(decimal.RequireFromString("150.75")))
	assert.True(t, changes["checking"].Equal(decimal.RequireFromString("-150.75")))
}

func TestValidateAccountTypes(t *testing.T) {
	assert.NoError(t, domain.ValidateAccountTypes())
}
