package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// normalBalance maps each account type to the entry type that increases it.
// Asset/Expense accounts grow with debits; Liability/Equity/Revenue grow with
// credits. The table is the single source of truth for sign conventions and
// is validated at startup via ValidateAccountTypes.
var normalBalance = map[AccountType]EntryType{
	Asset:     Debit,
	Expense:   Debit,
	Liability: Credit,
	Equity:    Credit,
	Revenue:   Credit,
}

// NormalBalance returns the entry type that increases accounts of this type.
func (t AccountType) NormalBalance() (EntryType, error) {
	nb, ok := normalBalance[t]
	if !ok {
		return "", fmt.Errorf("unknown account type %q", t)
	}
	return nb, nil
}

// IsValid reports whether t is one of the five known account types.
func (t AccountType) IsValid() bool {
	_, ok := normalBalance[t]
	return ok
}

// ValidateAccountTypes confirms the normal-balance table covers every known
// account type. Called once at startup so a bad edit fails fast rather than
// producing misposted entries.
func ValidateAccountTypes() error {
	for _, t := range []AccountType{Asset, Liability, Equity, Revenue, Expense} {
		if _, err := t.NormalBalance(); err != nil {
			return err
		}
	}
	return nil
}

// Account represents a financial account within the ledger.
type Account struct {
	AccountID    string          `json:"accountID"`
	Name         string          `json:"name"`
	AccountType  AccountType     `json:"accountType"`
	CurrencyCode string          `json:"currencyCode"`
	Description  string          `json:"description"`
	IsActive     bool            `json:"isActive"`
	Balance      decimal.Decimal `json:"balance"` // Persisted account balance
	AuditFields
}
