// The worker materializes due recurring transactions and reaps expired
// guest sessions. A scheduler goroutine polls the database and publishes
// one job per due template; queue workers process them with retries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/welthhq/welth/internal/config"
	"github.com/welthhq/welth/internal/jobs"
	"github.com/welthhq/welth/internal/jobs/inmemory"
	"github.com/welthhq/welth/internal/logger"
	"github.com/welthhq/welth/internal/service"
	"github.com/welthhq/welth/internal/session"
	"github.com/welthhq/welth/internal/store/postgres"
)

const dueBatchSize = 100

func main() {
	var (
		pollInterval  = flag.Duration("poll-interval", time.Minute, "how often to scan for due recurring transactions")
		purgeInterval = flag.Duration("purge-interval", time.Hour, "how often to reap expired guest sessions")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	db := postgres.New(pool)

	// The worker never serves interactive traffic, so no rate limiter.
	services := service.New(db, nil, log)
	resolver := session.NewResolver(db, nil, cfg.GuestSessionTTL, cfg.Production())

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
		recurringJob, ok := job.(*jobs.ProcessRecurringJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", recurringJob.JobID).
			Str("transaction_id", recurringJob.TransactionID).
			Msg("Processing recurring transaction")

		if err := services.Transactions.ProcessRecurring(ctx, recurringJob.UserID, recurringJob.TransactionID); err != nil {
			log.Error().
				Err(err).
				Str("job_id", recurringJob.JobID).
				Str("transaction_id", recurringJob.TransactionID).
				Msg("Recurring transaction processing failed")
			return err
		}

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Scheduler: scan for due templates and publish one job each.
	go func() {
		ticker := time.NewTicker(*pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				due, err := services.Transactions.ListDue(ctx, time.Now(), dueBatchSize)
				if err != nil {
					log.Error().Err(err).Msg("Failed to list due recurring transactions")
					continue
				}
				for _, tx := range due {
					job := &jobs.ProcessRecurringJob{
						TransactionID: tx.ID,
						UserID:        tx.UserID,
						DueAt:         *tx.NextRecurringDate,
					}
					if err := jobQueue.PublishProcessRecurring(ctx, job); err != nil {
						log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Failed to enqueue recurring job")
					}
				}
				if len(due) > 0 {
					log.Info().Int("count", len(due)).Msg("Enqueued due recurring transactions")
				}
			}
		}
	}()

	// Reaper: delete guests whose session window has passed.
	go func() {
		ticker := time.NewTicker(*purgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := resolver.PurgeExpiredGuests(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to purge expired guests")
					continue
				}
				if purged > 0 {
					log.Info().Int64("count", purged).Msg("Purged expired guest sessions")
				}
			}
		}
	}()

	log.Info().
		Dur("poll_interval", *pollInterval).
		Dur("purge_interval", *purgeInterval).
		Msg("Worker service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := jobQueue.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Job queue shutdown failed")
	}

	log.Info().Msg("Worker service stopped")
}
