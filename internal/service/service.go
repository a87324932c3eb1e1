// Package service implements the account and transaction managers: the
// operations that mutate the ledger under its consistency rules.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/welthhq/welth/internal/store"
)

// RateLimiter is the request-budget collaborator consulted before
// mutations by registered identities. Guests bypass it at the call site.
type RateLimiter interface {
	Allow(ctx context.Context, identityID string) (bool, error)
}

// allowAll is the budget used when no limiter is configured.
type allowAll struct{}

func (allowAll) Allow(context.Context, string) (bool, error) { return true, nil }

// Services bundles the dependencies shared by the managers.
type Services struct {
	Accounts     *AccountService
	Transactions *TransactionService
}

// New wires the managers. limiter may be nil.
func New(s store.Store, limiter RateLimiter, log zerolog.Logger) *Services {
	if limiter == nil {
		limiter = allowAll{}
	}
	return &Services{
		Accounts:     &AccountService{store: s, limiter: limiter, log: log, now: time.Now},
		Transactions: &TransactionService{store: s, limiter: limiter, log: log, now: time.Now},
	}
}
