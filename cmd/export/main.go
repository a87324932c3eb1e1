// export pushes the transaction ledger into BigQuery for reporting.
// Intended to run on a schedule (cron, Cloud Scheduler).
package main

import (
	"context"
	"flag"
	"time"

	"github.com/welthhq/welth/internal/analytics"
	"github.com/welthhq/welth/internal/config"
	"github.com/welthhq/welth/internal/logger"
	"github.com/welthhq/welth/internal/store/postgres"
)

func main() {
	var (
		summarize = flag.Bool("summaries", false, "print monthly summaries for the last year after exporting")
		timeout   = flag.Duration("timeout", 10*time.Minute, "overall export deadline")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.BigQueryProject == "" {
		log.Fatal().Msg("No BigQuery project configured: set BQ_PROJECT")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	db := postgres.New(pool)

	exporter, err := analytics.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
	}
	defer exporter.Close()

	transactions, err := db.ListAllTransactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read transactions")
	}

	if err := exporter.Export(ctx, transactions); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	log.Info().
		Int("transactions", len(transactions)).
		Str("dataset", cfg.BigQueryDataset).
		Msg("Ledger exported")

	if *summarize {
		now := time.Now()
		summaries, err := exporter.MonthlySummaries(ctx, now.AddDate(-1, 0, 0), now)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to query monthly summaries")
		}
		for _, s := range summaries {
			log.Info().
				Str("user_id", s.UserID).
				Str("month", s.Month).
				Float64("income", s.Income).
				Float64("expenses", s.Expenses).
				Float64("net", s.Net).
				Int64("transactions", s.Transactions).
				Msg("Monthly summary")
		}
	}
}
