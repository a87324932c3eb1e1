package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/welthhq/welth/internal/api/handlers"
	"github.com/welthhq/welth/internal/api/middleware"
	"github.com/welthhq/welth/internal/config"
	"github.com/welthhq/welth/internal/logger"
	"github.com/welthhq/welth/internal/ratelimit"
	"github.com/welthhq/welth/internal/receipt"
	"github.com/welthhq/welth/internal/revalidate"
	"github.com/welthhq/welth/internal/seed"
	"github.com/welthhq/welth/internal/service"
	"github.com/welthhq/welth/internal/session"
	"github.com/welthhq/welth/internal/store/postgres"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	db := postgres.New(pool)

	// Redis backs rate limiting and view invalidation. Both degrade to
	// no-ops when unconfigured.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
	} else {
		log.Warn().Msg("No Redis configured - rate limiting and view invalidation disabled")
	}
	limiter := ratelimit.New(redisClient, cfg.RateLimit, cfg.RateLimitWindow)
	views := revalidate.New(redisClient, log)

	services := service.New(db, limiter, log)
	seeder := seed.New(db)
	resolver := session.NewResolver(db, nil, cfg.GuestSessionTTL, cfg.Production())

	var scanner handlers.ScannerAPI
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		s, err := receipt.NewScanner(ctx, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create receipt scanner")
		}
		scanner = s
	} else {
		log.Warn().Msg("No Gemini credentials - receipt scanning disabled")
	}

	var archiver handlers.ArchiverAPI
	if cfg.GCSBucket != "" {
		a, err := receipt.NewArchiver(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create receipt archiver")
		}
		defer a.Close()
		archiver = a
	} else {
		log.Warn().Msg("No GCS bucket configured - receipt archiving disabled")
	}

	accountsHandler := handlers.NewAccountsHandler(services.Accounts, seeder, views, cfg.SeedDays, log)
	transactionsHandler := handlers.NewTransactionsHandler(services.Transactions, views, log)
	dashboardHandler := handlers.NewDashboardHandler(services.Accounts, services.Transactions, log)
	receiptsHandler := handlers.NewReceiptsHandler(scanner, archiver, log)
	sessionHandler := handlers.NewSessionHandler(resolver, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		accountID, ok := strings.CutSuffix(rest, "/seed")
		if !ok || accountID == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		accountsHandler.SeedAccount(w, r, accountID)
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		txID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if txID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.GetTransaction(w, r, txID)
		case http.MethodPut:
			transactionsHandler.UpdateTransaction(w, r, txID)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, txID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		dashboardHandler.GetDashboard(w, r)
	})

	mux.HandleFunc("/api/receipts/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		receiptsHandler.ScanReceipt(w, r)
	})

	mux.HandleFunc("/api/guest", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			sessionHandler.CreateGuest(w, r)
		case http.MethodDelete:
			sessionHandler.SignOutGuest(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(resolver, log)(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
