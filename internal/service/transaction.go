package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/ledger"
	"github.com/welthhq/welth/internal/store"
)

// TransactionService creates, updates and deletes transactions. Each
// mutation triggers exactly one compensating ledger update on the owning
// account, inside the same transactional scope as the row write.
type TransactionService struct {
	store   store.Store
	limiter RateLimiter
	log     zerolog.Logger
	now     func() time.Time
}

// TransactionInput carries user-supplied transaction fields. Amount is
// the raw string from the client; it must parse as a non-negative
// decimal magnitude.
type TransactionInput struct {
	AccountID         string
	Type              domain.TransactionType
	Amount            string
	Description       string
	Date              time.Time
	Category          string
	ReceiptURL        *string
	IsRecurring       bool
	RecurringInterval *domain.RecurringInterval
}

func (in *TransactionInput) parse() (decimal.Decimal, error) {
	if !in.Type.Valid() {
		return decimal.Zero, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidArgument, in.Type)
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", domain.ErrInvalidArgument, in.Amount)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must be a non-negative magnitude", domain.ErrInvalidArgument)
	}
	if in.Date.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: date is required", domain.ErrInvalidArgument)
	}
	if in.IsRecurring {
		if in.RecurringInterval == nil || !in.RecurringInterval.Valid() {
			return decimal.Zero, fmt.Errorf("%w: recurring transactions need a valid interval", domain.ErrInvalidArgument)
		}
	}
	return amount, nil
}

func (in *TransactionInput) nextRecurringDate() *time.Time {
	if !in.IsRecurring || in.RecurringInterval == nil {
		return nil
	}
	next := domain.NextOccurrence(in.Date, *in.RecurringInterval)
	return &next
}

// Create inserts a transaction and applies its signed amount to the
// owning account, atomically. Fails with NotFound when the account does
// not belong to the caller.
func (s *TransactionService) Create(ctx context.Context, user *domain.User, in TransactionInput) (*domain.Transaction, error) {
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := checkBudget(ctx, s.limiter, s.log, user); err != nil {
		return nil, err
	}

	amount, err := in.parse()
	if err != nil {
		return nil, err
	}

	now := s.now()
	tx := &domain.Transaction{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		AccountID:         in.AccountID,
		Type:              in.Type,
		Amount:            amount,
		Description:       in.Description,
		Date:              in.Date,
		Category:          in.Category,
		ReceiptURL:        in.ReceiptURL,
		Status:            domain.TransactionStatusCompleted,
		IsRecurring:       in.IsRecurring,
		RecurringInterval: in.RecurringInterval,
		NextRecurringDate: in.nextRecurringDate(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.store.WithinTx(ctx, func(st store.Store) error {
		if _, err := st.GetAccount(ctx, user.ID, in.AccountID); err != nil {
			return err
		}
		if err := st.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		return ledger.Apply(ctx, st, user.ID, in.AccountID, tx.SignedAmount())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("transaction_id", tx.ID).
		Str("account_id", tx.AccountID).
		Str("type", string(tx.Type)).
		Msg("Transaction created")

	return tx, nil
}

// Update persists new transaction fields and applies the net balance
// delta (newSigned − oldSigned) in one step, which handles type flips,
// amount edits, or both without double-counting. When the account
// reference changes, the old signed amount is reversed on the old
// account and the new one applied on the new account, both ledger
// writes inside the same scope.
func (s *TransactionService) Update(ctx context.Context, user *domain.User, txID string, in TransactionInput) (*domain.Transaction, error) {
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := checkBudget(ctx, s.limiter, s.log, user); err != nil {
		return nil, err
	}

	amount, err := in.parse()
	if err != nil {
		return nil, err
	}

	var updated *domain.Transaction
	err = s.store.WithinTx(ctx, func(st store.Store) error {
		original, err := st.GetTransaction(ctx, user.ID, txID)
		if err != nil {
			return err
		}

		oldSigned := original.SignedAmount()

		next := *original
		next.AccountID = in.AccountID
		next.Type = in.Type
		next.Amount = amount
		next.Description = in.Description
		next.Date = in.Date
		next.Category = in.Category
		next.ReceiptURL = in.ReceiptURL
		next.IsRecurring = in.IsRecurring
		next.RecurringInterval = in.RecurringInterval
		next.NextRecurringDate = in.nextRecurringDate()
		next.UpdatedAt = s.now()

		newSigned := next.SignedAmount()

		if err := st.UpdateTransaction(ctx, &next); err != nil {
			return err
		}

		if original.AccountID != next.AccountID {
			if err := ledger.Apply(ctx, st, user.ID, original.AccountID, oldSigned.Neg()); err != nil {
				return err
			}
			if err := ledger.Apply(ctx, st, user.ID, next.AccountID, newSigned); err != nil {
				return err
			}
		} else if netDelta := newSigned.Sub(oldSigned); !netDelta.IsZero() {
			if err := ledger.Apply(ctx, st, user.ID, next.AccountID, netDelta); err != nil {
				return err
			}
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("transaction_id", txID).
		Msg("Transaction updated")

	return updated, nil
}

// Delete removes a transaction and reverses its signed amount on the
// owning account, atomically.
func (s *TransactionService) Delete(ctx context.Context, user *domain.User, txID string) error {
	if user == nil {
		return domain.ErrUnauthorized
	}

	err := s.store.WithinTx(ctx, func(st store.Store) error {
		tx, err := st.GetTransaction(ctx, user.ID, txID)
		if err != nil {
			return err
		}
		if err := st.DeleteTransaction(ctx, user.ID, txID); err != nil {
			return err
		}
		return ledger.Apply(ctx, st, user.ID, tx.AccountID, tx.SignedAmount().Neg())
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("transaction_id", txID).
		Msg("Transaction deleted")

	return nil
}

// Get returns one owned transaction.
func (s *TransactionService) Get(ctx context.Context, user *domain.User, txID string) (*domain.Transaction, error) {
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.GetTransaction(ctx, user.ID, txID)
}

// List returns the owner's transactions matching the filter, newest
// date first. Read-only; with no identity it degrades to empty.
func (s *TransactionService) List(ctx context.Context, user *domain.User, f store.TransactionFilter) ([]*domain.Transaction, error) {
	if user == nil {
		return []*domain.Transaction{}, nil
	}
	txs, err := s.store.ListTransactions(ctx, user.ID, f)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}
	return txs, nil
}

// ListDue returns recurring templates due at or before now. Used by the
// worker's scan loop.
func (s *TransactionService) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Transaction, error) {
	return s.store.ListDueRecurring(ctx, now, limit)
}

// ProcessRecurring materializes the next occurrence of a due recurring
// template: a new completed transaction dated at the due timestamp, a
// ledger update, and the template's next-due date advanced by one
// interval — all in one scope. Templates that are no longer recurring or
// not yet due are skipped without error.
func (s *TransactionService) ProcessRecurring(ctx context.Context, userID, txID string) error {
	now := s.now()

	return s.store.WithinTx(ctx, func(st store.Store) error {
		template, err := st.GetTransaction(ctx, userID, txID)
		if err != nil {
			return err
		}
		if !template.IsRecurring || template.RecurringInterval == nil || template.NextRecurringDate == nil {
			return nil
		}
		due := *template.NextRecurringDate
		if due.After(now) {
			return nil
		}

		occurrence := &domain.Transaction{
			ID:          uuid.New().String(),
			UserID:      template.UserID,
			AccountID:   template.AccountID,
			Type:        template.Type,
			Amount:      template.Amount,
			Description: template.Description + " (Recurring)",
			Date:        due,
			Category:    template.Category,
			Status:      domain.TransactionStatusCompleted,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.InsertTransaction(ctx, occurrence); err != nil {
			return err
		}
		if err := ledger.Apply(ctx, st, userID, template.AccountID, occurrence.SignedAmount()); err != nil {
			return err
		}

		nextDue := domain.NextOccurrence(due, *template.RecurringInterval)
		template.NextRecurringDate = &nextDue
		template.LastProcessed = &now
		template.UpdatedAt = now
		return st.UpdateTransaction(ctx, template)
	})
}
