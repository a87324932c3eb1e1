// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries everything the binaries need at startup. DatabaseURL is
// the only required value; collaborators (Redis, GCS, Gemini, BigQuery)
// degrade to disabled when unconfigured.
type Config struct {
	Env  string
	Port string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	GCSBucket   string
	GeminiModel string

	BigQueryProject string
	BigQueryDataset string

	RateLimit       int
	RateLimitWindow time.Duration

	GuestSessionTTL time.Duration
	SeedDays        int
}

// Load reads configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Env:             getenv("APP_ENV", "development"),
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		GeminiModel:     getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		BigQueryProject: os.Getenv("BQ_PROJECT"),
		BigQueryDataset: getenv("BQ_DATASET", "welth"),
		RateLimit:       10,
		RateLimitWindow: time.Hour,
		GuestSessionTTL: 24 * time.Hour,
		SeedDays:        30,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT %q", v)
		}
		cfg.RateLimit = n
	}

	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW %q", v)
		}
		cfg.RateLimitWindow = d
	}

	if v := os.Getenv("SEED_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid SEED_DAYS %q", v)
		}
		cfg.SeedDays = n
	}

	return cfg, nil
}

// Production reports whether the service runs with production hardening
// (secure cookies).
func (c Config) Production() bool {
	return c.Env == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
