package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType indicates whether a ledger entry is a Debit or a Credit.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// Opposite returns the flipped entry type, used when building reversals.
func (t EntryType) Opposite() EntryType {
	if t == Debit {
		return Credit
	}
	return Debit
}

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Draft    JournalStatus = "DRAFT"
	Posted   JournalStatus = "POSTED"
	Reversed JournalStatus = "REVERSED"
)

// BalanceTolerance is the maximum per-currency difference between total
// debits and total credits that still counts as balanced (one minor unit
// rounding artifact).
var BalanceTolerance = decimal.NewFromFloat(0.01)

// LedgerEntry is a single immutable line item within a journal, affecting one
// account. Amounts are always positive; direction is carried by EntryType.
type LedgerEntry struct {
	EntryID       string          `json:"entryID"`
	JournalID     string          `json:"journalID"` // Groups entries posted together
	AccountID     string          `json:"accountID"`
	AccountType   AccountType     `json:"accountType"`
	EntryType     EntryType       `json:"entryType"`
	Amount        decimal.Decimal `json:"amount"` // Positive; direction via EntryType
	CurrencyCode  string          `json:"currencyCode"`
	ReferenceID   string          `json:"referenceID,omitempty"`   // Optional link to originating business object
	ReferenceType string          `json:"referenceType,omitempty"` // Present iff ReferenceID is present
	Notes         string          `json:"notes,omitempty"`
	AuditFields
}

// Validate checks the per-entry invariants: positive amount, known
// account/entry type, and reference pairing (type present iff id present).
func (e LedgerEntry) Validate() error {
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("entry amount must be positive, got %s", e.Amount)
	}
	if !e.AccountType.IsValid() {
		return fmt.Errorf("unknown account type %q", e.AccountType)
	}
	if e.EntryType != Debit && e.EntryType != Credit {
		return fmt.Errorf("unknown entry type %q", e.EntryType)
	}
	if e.CurrencyCode == "" {
		return fmt.Errorf("entry currency code is required")
	}
	if (e.ReferenceID == "") != (e.ReferenceType == "") {
		return fmt.Errorf("reference id and reference type must be set together")
	}
	return nil
}

// SignedAmount applies the account-normal-balance convention so consumers can
// sum signed amounts directly: a debit to an asset/expense account is
// positive, a credit to it negative, and vice versa for
// liability/equity/revenue accounts.
func (e LedgerEntry) SignedAmount() (decimal.Decimal, error) {
	nb, err := e.AccountType.NormalBalance()
	if err != nil {
		return decimal.Zero, fmt.Errorf("account %s: %w", e.AccountID, err)
	}
	if e.EntryType == nb {
		return e.Amount, nil
	}
	return e.Amount.Neg(), nil
}

// JournalEntry is an aggregate of two or more ledger entries that share a
// journal ID and must balance per currency. History is never mutated: a
// posted journal is undone by posting an equal-and-opposite reversal.
type JournalEntry struct {
	JournalID          string        `json:"journalID"`
	JournalDate        time.Time     `json:"journalDate"`
	Description        string        `json:"description"`
	Status             JournalStatus `json:"status"`
	Entries            []LedgerEntry `json:"entries"`
	OriginalJournalID  *string       `json:"originalJournalID,omitempty"`  // Set on reversal journals
	ReversingJournalID *string       `json:"reversingJournalID,omitempty"` // Set on reversed journals
	AuditFields
}

// IsBalanced reports whether, for every currency present, total debits equal
// total credits within BalanceTolerance.
func (j JournalEntry) IsBalanced() bool {
	type sums struct{ debits, credits decimal.Decimal }
	byCurrency := make(map[string]sums)
	for _, e := range j.Entries {
		s := byCurrency[e.CurrencyCode]
		if e.EntryType == Debit {
			s.debits = s.debits.Add(e.Amount)
		} else {
			s.credits = s.credits.Add(e.Amount)
		}
		byCurrency[e.CurrencyCode] = s
	}
	for _, s := range byCurrency {
		if s.debits.Sub(s.credits).Abs().GreaterThan(BalanceTolerance) {
			return false
		}
	}
	return true
}

// BalanceChanges computes the net signed balance delta per account across
// all entries in the journal.
func (j JournalEntry) BalanceChanges() (map[string]decimal.Decimal, error) {
	changes := make(map[string]decimal.Decimal)
	for _, e := range j.Entries {
		signed, err := e.SignedAmount()
		if err != nil {
			return nil, err
		}
		changes[e.AccountID] = changes[e.AccountID].Add(signed)
	}
	return changes, nil
}
