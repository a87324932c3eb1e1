package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType determines the sign a transaction contributes to its
// account balance. Amounts are stored as unsigned magnitudes; the sign is
// derived at balance-update time and never persisted.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether the transaction type is known.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// TransactionStatus tracks the lifecycle of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// RecurringInterval is the unit a recurring transaction advances by.
type RecurringInterval string

const (
	RecurringDaily   RecurringInterval = "DAILY"
	RecurringWeekly  RecurringInterval = "WEEKLY"
	RecurringMonthly RecurringInterval = "MONTHLY"
	RecurringYearly  RecurringInterval = "YEARLY"
)

// Valid reports whether the interval is known.
func (i RecurringInterval) Valid() bool {
	switch i {
	case RecurringDaily, RecurringWeekly, RecurringMonthly, RecurringYearly:
		return true
	}
	return false
}

// Transaction is one INCOME or EXPENSE entry on an account.
//
// Invariant: NextRecurringDate is non-nil iff IsRecurring is true and
// RecurringInterval is set; it equals Date advanced by one interval unit.
type Transaction struct {
	ID          string
	UserID      string
	AccountID   string
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	Category    string
	ReceiptURL  *string
	Status      TransactionStatus

	IsRecurring       bool
	RecurringInterval *RecurringInterval
	NextRecurringDate *time.Time
	LastProcessed     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SignedAmount returns the transaction's contribution to its account
// balance: positive for INCOME, negative for EXPENSE.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// NextOccurrence advances date by one interval unit. Month and year steps
// clamp to the last day of the target month instead of normalizing into
// the following month, so a bill dated Jan 31 recurs on Feb 29 in a leap
// year rather than Mar 2.
func NextOccurrence(date time.Time, interval RecurringInterval) time.Time {
	switch interval {
	case RecurringDaily:
		return date.AddDate(0, 0, 1)
	case RecurringWeekly:
		return date.AddDate(0, 0, 7)
	case RecurringMonthly:
		return addMonthsClamped(date, 1)
	case RecurringYearly:
		return addMonthsClamped(date, 12)
	}
	return date
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	hour, min, sec := t.Clock()

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
