// Package seed populates a freshly created account with synthetic demo
// transactions for onboarding.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/ledger"
	"github.com/welthhq/welth/internal/store"
)

// MinimumBalance is the floor applied to the seeded balance so a demo
// account never opens in the red.
var MinimumBalance = decimal.NewFromInt(1000)

type category struct {
	name string
	min  float64
	max  float64
}

// Categories with their typical amount ranges.
var (
	incomeCategories = []category{
		{"salary", 5000, 8000},
		{"freelance", 1000, 3000},
		{"investments", 500, 2000},
		{"other-income", 100, 1000},
	}
	expenseCategories = []category{
		{"housing", 1000, 2000},
		{"transportation", 100, 500},
		{"groceries", 200, 600},
		{"utilities", 100, 300},
		{"entertainment", 50, 200},
		{"food", 50, 150},
		{"shopping", 100, 500},
		{"healthcare", 100, 1000},
		{"education", 200, 1000},
		{"travel", 500, 2000},
	}
)

// Seeder generates demo transactions. It is guarded by the account's
// seeded flag and meant to run once, at account-creation time.
type Seeder struct {
	store store.Store
	rng   *rand.Rand
	now   func() time.Time
}

// New creates a seeder with a time-seeded random source.
func New(s store.Store) *Seeder {
	return NewWithRand(s, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewWithRand creates a seeder with explicit randomness and clock,
// used by tests.
func NewWithRand(s store.Store, rng *rand.Rand, now func() time.Time) *Seeder {
	return &Seeder{store: s, rng: rng, now: now}
}

// Seed emits one to two synthetic transactions for each of the last
// `days` days inclusive, then recomputes the account balance from the
// signed sum floored at MinimumBalance — one bulk insert plus one
// balance write, atomically. A second call on the same account fails
// with ErrAlreadySeeded.
func (s *Seeder) Seed(ctx context.Context, user *domain.User, accountID string, days int) (int, error) {
	if user == nil {
		return 0, domain.ErrUnauthorized
	}
	if days <= 0 {
		return 0, fmt.Errorf("%w: days must be positive", domain.ErrInvalidArgument)
	}

	now := s.now()
	rows := s.generate(user.ID, accountID, days, now)

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		account, err := tx.GetAccount(ctx, user.ID, accountID)
		if err != nil {
			return err
		}
		if account.Seeded {
			return domain.ErrAlreadySeeded
		}

		if err := tx.InsertTransactions(ctx, rows); err != nil {
			return err
		}
		if _, err := ledger.Recompute(ctx, tx, user.ID, accountID, MinimumBalance); err != nil {
			return err
		}
		return tx.MarkAccountSeeded(ctx, user.ID, accountID)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *Seeder) generate(userID, accountID string, days int, now time.Time) []*domain.Transaction {
	var rows []*domain.Transaction

	for i := days; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)

		perDay := s.rng.Intn(2) + 1
		for j := 0; j < perDay; j++ {
			// 40% chance of income, 60% chance of expense.
			txType := domain.TransactionTypeExpense
			table := expenseCategories
			if s.rng.Float64() < 0.4 {
				txType = domain.TransactionTypeIncome
				table = incomeCategories
			}

			cat := table[s.rng.Intn(len(table))]
			amount := decimal.NewFromFloat(cat.min + s.rng.Float64()*(cat.max-cat.min)).Round(2)

			verb := "Paid for"
			if txType == domain.TransactionTypeIncome {
				verb = "Received"
			}

			rows = append(rows, &domain.Transaction{
				ID:          uuid.New().String(),
				UserID:      userID,
				AccountID:   accountID,
				Type:        txType,
				Amount:      amount,
				Description: fmt.Sprintf("%s %s", verb, cat.name),
				Date:        date,
				Category:    cat.name,
				Status:      domain.TransactionStatusCompleted,
				CreatedAt:   date,
				UpdatedAt:   date,
			})
		}
	}
	return rows
}
