package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/store"
)

// AccountService creates and lists accounts, enforcing the
// single-default-account invariant.
type AccountService struct {
	store   store.Store
	limiter RateLimiter
	log     zerolog.Logger
	now     func() time.Time
}

// CreateAccountInput carries user-supplied account fields. Balance is
// the raw string from the client; it must parse as a finite decimal.
type CreateAccountInput struct {
	Name      string
	Type      domain.AccountType
	Balance   string
	IsDefault bool
}

// Create validates input, applies the default-selection rule and inserts
// the account. The owner's first account is forced default regardless of
// input; when the new account will be default, every other default is
// cleared first, inside the same transactional scope, so no reader sees
// an owner with zero defaults.
func (s *AccountService) Create(ctx context.Context, user *domain.User, in CreateAccountInput) (*domain.Account, error) {
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := s.checkBudget(ctx, user); err != nil {
		return nil, err
	}

	if in.Name == "" {
		return nil, fmt.Errorf("%w: account name is required", domain.ErrInvalidArgument)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", domain.ErrInvalidArgument, in.Type)
	}
	balance, err := decimal.NewFromString(in.Balance)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid balance amount %q", domain.ErrInvalidArgument, in.Balance)
	}

	now := s.now()
	account := &domain.Account{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      in.Name,
		Type:      in.Type,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		count, err := tx.CountAccounts(ctx, user.ID)
		if err != nil {
			return err
		}

		// First account is always the default.
		account.IsDefault = count == 0 || in.IsDefault

		if account.IsDefault {
			if err := tx.ClearDefaultAccounts(ctx, user.ID); err != nil {
				return err
			}
		}
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("account_id", account.ID).
		Bool("is_default", account.IsDefault).
		Msg("Account created")

	return account, nil
}

// List returns the owner's accounts, newest first. With no identity it
// degrades to an empty result so dashboard rendering stays resilient.
func (s *AccountService) List(ctx context.Context, user *domain.User) ([]*domain.Account, error) {
	if user == nil {
		return []*domain.Account{}, nil
	}
	accounts, err := s.store.ListAccounts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return accounts, nil
}

// checkBudget consults the rate limiter for registered identities.
// Guests bypass the budget entirely; limiter outages fail open.
func (s *AccountService) checkBudget(ctx context.Context, user *domain.User) error {
	return checkBudget(ctx, s.limiter, s.log, user)
}

func checkBudget(ctx context.Context, limiter RateLimiter, log zerolog.Logger, user *domain.User) error {
	if user.IsGuest() {
		return nil
	}
	allowed, err := limiter.Allow(ctx, user.ID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Rate limiter unavailable, allowing request")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}
