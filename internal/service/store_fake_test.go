package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/store"
)

// fakeStore is an in-memory store.Store used by the service tests.
// WithinTx runs fn against a copy of the state and publishes it only on
// success, mirroring the all-or-nothing scope of the real store.
type fakeStore struct {
	users        map[string]domain.User
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[string]domain.User{},
		accounts:     map[string]domain.Account{},
		transactions: map[string]domain.Transaction{},
	}
}

func (f *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for k, v := range f.users {
		c.users[k] = v
	}
	for k, v := range f.accounts {
		c.accounts[k] = v
	}
	for k, v := range f.transactions {
		c.transactions[k] = v
	}
	return c
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(store.Store) error) error {
	scratch := f.clone()
	if err := fn(scratch); err != nil {
		return err
	}
	f.users = scratch.users
	f.accounts = scratch.accounts
	f.transactions = scratch.transactions
	return nil
}

func (f *fakeStore) InsertUser(ctx context.Context, u *domain.User) error {
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) GetUserByProviderID(ctx context.Context, providerID string) (*domain.User, error) {
	for _, u := range f.users {
		if u.ProviderID == providerID {
			out := u
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) DeleteUser(ctx context.Context, userID string) error {
	if _, ok := f.users[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.users, userID)
	for id, a := range f.accounts {
		if a.UserID == userID {
			delete(f.accounts, id)
		}
	}
	for id, t := range f.transactions {
		if t.UserID == userID {
			delete(f.transactions, id)
		}
	}
	return nil
}

func (f *fakeStore) DeleteExpiredGuests(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, u := range f.users {
		if u.ExpiresAt != nil && now.After(*u.ExpiresAt) {
			_ = f.DeleteUser(ctx, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) InsertAccount(ctx context.Context, a *domain.Account) error {
	f.accounts[a.ID] = *a
	return nil
}

func (f *fakeStore) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	a, ok := f.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, domain.ErrNotFound
	}
	out := a
	return &out, nil
}

func (f *fakeStore) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			account := a
			out = append(out, &account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) CountAccounts(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, a := range f.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ClearDefaultAccounts(ctx context.Context, userID string) error {
	for id, a := range f.accounts {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			f.accounts[id] = a
		}
	}
	return nil
}

func (f *fakeStore) ApplyBalanceDelta(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	a, ok := f.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	f.accounts[accountID] = a
	return nil
}

func (f *fakeStore) SetAccountBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error {
	a, ok := f.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	a.Balance = balance
	f.accounts[accountID] = a
	return nil
}

func (f *fakeStore) MarkAccountSeeded(ctx context.Context, userID, accountID string) error {
	a, ok := f.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	a.Seeded = true
	f.accounts[accountID] = a
	return nil
}

func (f *fakeStore) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	f.transactions[t.ID] = *t
	return nil
}

func (f *fakeStore) InsertTransactions(ctx context.Context, ts []*domain.Transaction) error {
	for _, t := range ts {
		f.transactions[t.ID] = *t
	}
	return nil
}

func (f *fakeStore) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	existing, ok := f.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return domain.ErrNotFound
	}
	f.transactions[t.ID] = *t
	return nil
}

func (f *fakeStore) DeleteTransaction(ctx context.Context, userID, txID string) error {
	t, ok := f.transactions[txID]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(f.transactions, txID)
	return nil
}

func (f *fakeStore) GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error) {
	t, ok := f.transactions[txID]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	out := t
	return &out, nil
}

func (f *fakeStore) ListTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range f.transactions {
		if t.UserID != userID {
			continue
		}
		if filter.AccountID != "" && t.AccountID != filter.AccountID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.From != nil && t.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.Date.After(*filter.To) {
			continue
		}
		tx := t
		out = append(out, &tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeStore) ListAllTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range f.transactions {
		tx := t
		out = append(out, &tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeStore) ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range f.transactions {
		if t.IsRecurring && t.NextRecurringDate != nil && !t.NextRecurringDate.After(now) {
			tx := t
			out = append(out, &tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRecurringDate.Before(*out[j].NextRecurringDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) SumTransactionAmounts(ctx context.Context, accountID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range f.transactions {
		if t.AccountID == accountID {
			tx := t
			sum = sum.Add(tx.SignedAmount())
		}
	}
	return sum, nil
}

var _ store.Store = (*fakeStore)(nil)
