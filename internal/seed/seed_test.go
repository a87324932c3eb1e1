package seed

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/store"
)

// seedStore implements just the slice of store.Store the seeder
// touches; the embedded interface panics on anything else.
type seedStore struct {
	store.Store

	account *domain.Account
	rows    []*domain.Transaction
}

func (s *seedStore) WithinTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *seedStore) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	if s.account == nil || s.account.ID != accountID || s.account.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *s.account
	return &cp, nil
}

func (s *seedStore) InsertTransactions(ctx context.Context, ts []*domain.Transaction) error {
	s.rows = append(s.rows, ts...)
	return nil
}

func (s *seedStore) SumTransactionAmounts(ctx context.Context, accountID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range s.rows {
		if t.AccountID == accountID {
			sum = sum.Add(t.SignedAmount())
		}
	}
	return sum, nil
}

func (s *seedStore) SetAccountBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error {
	s.account.Balance = balance
	return nil
}

func (s *seedStore) MarkAccountSeeded(ctx context.Context, userID, accountID string) error {
	s.account.Seeded = true
	return nil
}

func newSeedFixture() (*seedStore, *Seeder, *domain.User) {
	user := &domain.User{ID: "user-1", ProviderID: "clerk-1"}
	st := &seedStore{account: &domain.Account{
		ID:      "acct-1",
		UserID:  user.ID,
		Name:    "Demo",
		Type:    domain.AccountTypeCurrent,
		Balance: decimal.Zero,
	}}
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	seeder := NewWithRand(st, rand.New(rand.NewSource(42)), func() time.Time { return now })
	return st, seeder, user
}

func TestSeedGeneratesOneToTwoPerDay(t *testing.T) {
	st, seeder, user := newSeedFixture()

	const days = 30
	n, err := seeder.Seed(context.Background(), user, "acct-1", days)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != len(st.rows) {
		t.Fatalf("reported %d rows, stored %d", n, len(st.rows))
	}
	// days..0 inclusive, 1-2 transactions each.
	if n < days+1 || n > 2*(days+1) {
		t.Fatalf("got %d rows, want between %d and %d", n, days+1, 2*(days+1))
	}

	perDay := make(map[string]int)
	for _, tx := range st.rows {
		perDay[tx.Date.Format("2006-01-02")]++
		if tx.Amount.IsNegative() {
			t.Fatalf("negative amount %s", tx.Amount)
		}
		if tx.Status != domain.TransactionStatusCompleted {
			t.Fatalf("status = %s, want COMPLETED", tx.Status)
		}
		if tx.Category == "" || tx.Description == "" {
			t.Fatalf("row missing category or description: %+v", tx)
		}
	}
	if got := len(perDay); got != days+1 {
		t.Fatalf("covered %d distinct days, want %d", got, days+1)
	}
	for day, count := range perDay {
		if count < 1 || count > 2 {
			t.Fatalf("day %s has %d rows, want 1 or 2", day, count)
		}
	}
}

func TestSeedBalanceIsFlooredSum(t *testing.T) {
	st, seeder, user := newSeedFixture()

	if _, err := seeder.Seed(context.Background(), user, "acct-1", 30); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	sum := decimal.Zero
	for _, tx := range st.rows {
		sum = sum.Add(tx.SignedAmount())
	}
	want := sum
	if want.LessThan(MinimumBalance) {
		want = MinimumBalance
	}
	if !st.account.Balance.Equal(want) {
		t.Fatalf("balance = %s, want %s (sum %s)", st.account.Balance, want, sum)
	}
	if !st.account.Seeded {
		t.Fatal("account not marked seeded")
	}
}

func TestSeedRefusesSecondRun(t *testing.T) {
	st, seeder, user := newSeedFixture()

	if _, err := seeder.Seed(context.Background(), user, "acct-1", 5); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	before := len(st.rows)

	_, err := seeder.Seed(context.Background(), user, "acct-1", 5)
	if !errors.Is(err, domain.ErrAlreadySeeded) {
		t.Fatalf("second Seed err = %v, want ErrAlreadySeeded", err)
	}
	if len(st.rows) != before {
		t.Fatalf("second run wrote %d extra rows", len(st.rows)-before)
	}
}

func TestSeedForeignAccount(t *testing.T) {
	_, seeder, _ := newSeedFixture()

	other := &domain.User{ID: "user-2", ProviderID: "clerk-2"}
	_, err := seeder.Seed(context.Background(), other, "acct-1", 5)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSeedValidation(t *testing.T) {
	_, seeder, user := newSeedFixture()

	if _, err := seeder.Seed(context.Background(), nil, "acct-1", 5); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("nil user err = %v, want ErrUnauthorized", err)
	}
	if _, err := seeder.Seed(context.Background(), user, "acct-1", 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("zero days err = %v, want ErrInvalidArgument", err)
	}
}
