// migrate applies the embedded schema migrations to Postgres.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/welthhq/welth/internal/logger"
	"github.com/welthhq/welth/internal/store/postgres"
)

func main() {
	var (
		dsn     = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall migration deadline")
	)
	flag.Parse()

	log := logger.New()

	if *dsn == "" {
		log.Fatal().Msg("No database configured: pass -dsn or set DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, *dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Msg("Database is up to date")
}
