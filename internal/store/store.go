// Package store defines the persistence contracts consumed by the
// services. The postgres subpackage provides the production
// implementation; tests substitute in-memory fakes.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
)

// TransactionFilter narrows transaction list queries. Zero values mean
// "no constraint".
type TransactionFilter struct {
	AccountID string
	Type      domain.TransactionType
	From      *time.Time
	To        *time.Time
}

// Users is the user persistence contract. Every query is scoped to the
// keys passed in; there is no separate permission system.
type Users interface {
	InsertUser(ctx context.Context, u *domain.User) error
	GetUserByProviderID(ctx context.Context, providerID string) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
	DeleteExpiredGuests(ctx context.Context, now time.Time) (int64, error)
}

// Accounts is the account persistence contract. Balance writes are
// increment-style so concurrent ledger updates on the same account
// serialize under read-committed isolation.
type Accounts interface {
	InsertAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error)
	CountAccounts(ctx context.Context, userID string) (int, error)
	ClearDefaultAccounts(ctx context.Context, userID string) error
	ApplyBalanceDelta(ctx context.Context, userID, accountID string, delta decimal.Decimal) error
	SetAccountBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error
	MarkAccountSeeded(ctx context.Context, userID, accountID string) error
}

// Transactions is the transaction persistence contract.
type Transactions interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	InsertTransactions(ctx context.Context, ts []*domain.Transaction) error
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, txID string) error
	GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]*domain.Transaction, error)
	ListAllTransactions(ctx context.Context) ([]*domain.Transaction, error)
	ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Transaction, error)
	SumTransactionAmounts(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// Store is the full persistence surface. WithinTx runs fn against a
// transaction-scoped store: every call made through the argument joins
// the same database transaction, and either all of its writes commit or
// none do.
type Store interface {
	Users
	Accounts
	Transactions

	WithinTx(ctx context.Context, fn func(Store) error) error
}
