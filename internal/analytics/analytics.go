// Package analytics exports the transaction ledger to BigQuery for
// offline reporting. BigQuery is append-only here; Postgres remains
// the system of record.
package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/welthhq/welth/internal/domain"
)

const transactionsTable = "transactions"

// TransactionRow is the BigQuery shape of a ledger transaction.
// Amounts are exported signed so summaries are plain SUMs.
type TransactionRow struct {
	TransactionID string     `bigquery:"transaction_id"`
	UserID        string     `bigquery:"user_id"`
	AccountID     string     `bigquery:"account_id"`
	Type          string     `bigquery:"type"`
	SignedAmount  float64    `bigquery:"signed_amount"`
	Description   string     `bigquery:"description"`
	Date          civil.Date `bigquery:"transaction_date"`
	Category      string     `bigquery:"category"`
	Status        string     `bigquery:"status"`
	IsRecurring   bool       `bigquery:"is_recurring"`
	CreatedTS     time.Time  `bigquery:"created_ts"`
	ExportedTS    time.Time  `bigquery:"exported_ts"`
}

// MonthlySummary is one (user, month) aggregate.
type MonthlySummary struct {
	UserID       string  `bigquery:"user_id"`
	Month        string  `bigquery:"month"`
	Income       float64 `bigquery:"income"`
	Expenses     float64 `bigquery:"expenses"`
	Net          float64 `bigquery:"net"`
	Transactions int64   `bigquery:"transactions"`
}

// Exporter writes transaction rows into a BigQuery dataset.
type Exporter struct {
	client  *bigquery.Client
	project string
	dataset string
	now     func() time.Time
}

// NewExporter creates an exporter using Application Default
// Credentials.
func NewExporter(ctx context.Context, project, dataset string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("analytics: bigquery client: %w", err)
	}
	return &Exporter{client: client, project: project, dataset: dataset, now: time.Now}, nil
}

// Close releases the underlying BigQuery client.
func (e *Exporter) Close() error {
	return e.client.Close()
}

// Export appends the given transactions to the analytics table.
func (e *Exporter) Export(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	exportedAt := e.now()
	rows := make([]*TransactionRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, &TransactionRow{
			TransactionID: t.ID,
			UserID:        t.UserID,
			AccountID:     t.AccountID,
			Type:          string(t.Type),
			SignedAmount:  t.SignedAmount().InexactFloat64(),
			Description:   t.Description,
			Date:          civil.DateOf(t.Date),
			Category:      t.Category,
			Status:        string(t.Status),
			IsRecurring:   t.IsRecurring,
			CreatedTS:     t.CreatedAt,
			ExportedTS:    exportedAt,
		})
	}

	table := e.client.DatasetInProject(e.project, e.dataset).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("analytics: inserting rows: %w", err)
	}

	return nil
}

// MonthlySummaries aggregates exported rows per user and month within
// the given date range.
func (e *Exporter) MonthlySummaries(ctx context.Context, from, to time.Time) ([]*MonthlySummary, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT
			user_id,
			FORMAT_DATE('%%Y-%%m', transaction_date) AS month,
			SUM(IF(signed_amount > 0, signed_amount, 0)) AS income,
			SUM(IF(signed_amount < 0, -signed_amount, 0)) AS expenses,
			SUM(signed_amount) AS net,
			COUNT(*) AS transactions
		FROM %s.%s
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		GROUP BY user_id, month
		ORDER BY user_id, month
	`, e.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: from.Format("2006-01-02")},
		{Name: "end_date", Value: to.Format("2006-01-02")},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics: query read: %w", err)
	}

	var out []*MonthlySummary
	for {
		var s MonthlySummary
		err := it.Next(&s)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("analytics: iter next: %w", err)
		}
		out = append(out, &s)
	}

	return out, nil
}
