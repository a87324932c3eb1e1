package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType categorizes an account.
type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"
)

// Valid reports whether the account type is one of the known categories.
func (t AccountType) Valid() bool {
	return t == AccountTypeCurrent || t == AccountTypeSavings
}

// Account holds a denormalized running balance derived from its
// transaction list. The balance is mutated only through the ledger's
// update protocol, inside the same store transaction as the row write
// that caused the change.
//
// Invariant: for a given owner with at least one account, exactly one
// account has IsDefault set.
type Account struct {
	ID        string
	UserID    string
	Name      string
	Type      AccountType
	Balance   decimal.Decimal
	IsDefault bool
	Seeded    bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// TransactionCount is populated by list queries for dashboard views.
	TransactionCount int
}
