// Package ledger maintains the invariant that an account's stored
// balance equals the signed sum of its transactions. Every call must run
// against a transaction-scoped store so the balance write commits or
// rolls back together with the row write that caused it.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the slice of the persistence surface the ledger touches.
type Store interface {
	ApplyBalanceDelta(ctx context.Context, userID, accountID string, delta decimal.Decimal) error
	SetAccountBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error
	SumTransactionAmounts(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// Apply atomically adds a signed amount to the account's balance. The
// store reports domain.ErrNotFound when the account does not exist or
// does not belong to userID; callers abort the whole compound operation
// on that error.
func Apply(ctx context.Context, s Store, userID, accountID string, signed decimal.Decimal) error {
	return s.ApplyBalanceDelta(ctx, userID, accountID, signed)
}

// Recompute sets the balance to the signed sum of the account's
// transactions, floored at the given minimum. Used only at seeding and
// repair, never on request paths.
func Recompute(ctx context.Context, s Store, userID, accountID string, floor decimal.Decimal) (decimal.Decimal, error) {
	sum, err := s.SumTransactionAmounts(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if sum.LessThan(floor) {
		sum = floor
	}
	if err := s.SetAccountBalance(ctx, userID, accountID, sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
