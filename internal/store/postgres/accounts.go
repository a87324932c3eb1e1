package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
)

func (s *Store) InsertAccount(ctx context.Context, a *domain.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, user_id, name, type, balance, is_default, seeded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.UserID, a.Name, string(a.Type), a.Balance, a.IsDefault, a.Seeded, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, type, balance, is_default, seeded, created_at, updated_at
		FROM accounts
		WHERE id = $1 AND user_id = $2
	`, accountID, userID)

	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id, a.user_id, a.name, a.type, a.balance, a.is_default, a.seeded, a.created_at, a.updated_at,
		       (SELECT count(*) FROM transactions t WHERE t.account_id = a.id) AS transaction_count
		FROM accounts a
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		var (
			a   domain.Account
			typ string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &typ, &a.Balance, &a.IsDefault, &a.Seeded,
			&a.CreatedAt, &a.UpdatedAt, &a.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = domain.AccountType(typ)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) CountAccounts(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (s *Store) ClearDefaultAccounts(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE accounts SET is_default = false, updated_at = now()
		WHERE user_id = $1 AND is_default
	`, userID)
	if err != nil {
		return fmt.Errorf("clear default accounts: %w", err)
	}
	return nil
}

// ApplyBalanceDelta adds delta to the account balance as a single
// increment, so concurrent writers cannot lose updates. Returns
// domain.ErrNotFound when the account is absent or owned by someone else.
func (s *Store) ApplyBalanceDelta(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
	`, delta, accountID, userID)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetAccountBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts SET balance = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
	`, balance, accountID, userID)
	if err != nil {
		return fmt.Errorf("set account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAccountSeeded(ctx context.Context, userID, accountID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts SET seeded = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`, accountID, userID)
	if err != nil {
		return fmt.Errorf("mark account seeded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a   domain.Account
		typ string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &a.Balance, &a.IsDefault, &a.Seeded, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = domain.AccountType(typ)
	return &a, nil
}
