package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/store"
)

const transactionColumns = `id, user_id, account_id, type, amount, description, date, category,
	receipt_url, status, is_recurring, recurring_interval, next_recurring_date, last_processed,
	created_at, updated_at`

func (s *Store) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, t.ID, t.UserID, t.AccountID, string(t.Type), t.Amount, t.Description, t.Date, t.Category,
		t.ReceiptURL, string(t.Status), t.IsRecurring, intervalArg(t.RecurringInterval),
		t.NextRecurringDate, t.LastProcessed, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertTransactions bulk-inserts rows; used by the demo seeder.
func (s *Store) InsertTransactions(ctx context.Context, ts []*domain.Transaction) error {
	if len(ts) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO transactions (` + transactionColumns + `) VALUES `)
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 16
		sb.WriteString("(")
		for j := 1; j <= 16; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString("$" + strconv.Itoa(base+j))
		}
		sb.WriteString(")")
		args = append(args, t.ID, t.UserID, t.AccountID, string(t.Type), t.Amount, t.Description,
			t.Date, t.Category, t.ReceiptURL, string(t.Status), t.IsRecurring,
			intervalArg(t.RecurringInterval), t.NextRecurringDate, t.LastProcessed, t.CreatedAt, t.UpdatedAt)
	}

	if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET account_id = $1, type = $2, amount = $3, description = $4, date = $5, category = $6,
		    receipt_url = $7, status = $8, is_recurring = $9, recurring_interval = $10,
		    next_recurring_date = $11, last_processed = $12, updated_at = now()
		WHERE id = $13 AND user_id = $14
	`, t.AccountID, string(t.Type), t.Amount, t.Description, t.Date, t.Category,
		t.ReceiptURL, string(t.Status), t.IsRecurring, intervalArg(t.RecurringInterval),
		t.NextRecurringDate, t.LastProcessed, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, txID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, txID, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`, txID, userID)

	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}

	if f.AccountID != "" {
		args = append(args, f.AccountID)
		query += ` AND account_id = $` + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += ` AND date >= $` + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += ` AND date <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC`

	return s.queryTransactions(ctx, query, args...)
}

// ListAllTransactions returns every transaction; used by the analytics
// exporter, not by request paths.
func (s *Store) ListAllTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY date`)
}

// ListDueRecurring returns recurring templates whose next occurrence is
// due at or before now.
func (s *Store) ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE is_recurring AND next_recurring_date IS NOT NULL AND next_recurring_date <= $1
		ORDER BY next_recurring_date
		LIMIT $2
	`, now, limit)
}

// SumTransactionAmounts returns the signed sum of the account's
// transactions, the value its balance must equal.
func (s *Store) SumTransactionAmounts(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(sum(CASE WHEN type = 'EXPENSE' THEN -amount ELSE amount END), 0)
		FROM transactions
		WHERE account_id = $1
	`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transaction amounts: %w", err)
	}
	return sum, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t        domain.Transaction
		typ      string
		status   string
		interval *string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &typ, &t.Amount, &t.Description, &t.Date,
		&t.Category, &t.ReceiptURL, &status, &t.IsRecurring, &interval,
		&t.NextRecurringDate, &t.LastProcessed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = domain.TransactionType(typ)
	t.Status = domain.TransactionStatus(status)
	if interval != nil {
		ri := domain.RecurringInterval(*interval)
		t.RecurringInterval = &ri
	}
	return &t, nil
}

func intervalArg(i *domain.RecurringInterval) *string {
	if i == nil {
		return nil
	}
	s := string(*i)
	return &s
}
