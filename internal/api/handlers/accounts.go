package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/welthhq/welth/internal/api/middleware"
	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/revalidate"
	"github.com/welthhq/welth/internal/service"
	"github.com/welthhq/welth/internal/session"
)

// AccountAPI is the slice of the account service the handler uses.
type AccountAPI interface {
	Create(ctx context.Context, user *domain.User, in service.CreateAccountInput) (*domain.Account, error)
	List(ctx context.Context, user *domain.User) ([]*domain.Account, error)
}

// SeederAPI seeds an account with demo transactions.
type SeederAPI interface {
	Seed(ctx context.Context, user *domain.User, accountID string, days int) (int, error)
}

// AccountsHandler handles account-related endpoints.
type AccountsHandler struct {
	accounts AccountAPI
	seeder   SeederAPI
	views    *revalidate.Signaler
	seedDays int
	log      zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(accounts AccountAPI, seeder SeederAPI, views *revalidate.Signaler, seedDays int, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		accounts: accounts,
		seeder:   seeder,
		views:    views,
		seedDays: seedDays,
		log:      log,
	}
}

type accountResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Balance          string `json:"balance"`
	IsDefault        bool   `json:"is_default"`
	Seeded           bool   `json:"seeded"`
	TransactionCount int    `json:"transaction_count"`
	CreatedAt        string `json:"created_at"`
}

func toAccountResponse(a *domain.Account) *accountResponse {
	return &accountResponse{
		ID:               a.ID,
		Name:             a.Name,
		Type:             string(a.Type),
		Balance:          a.Balance.StringFixed(2),
		IsDefault:        a.IsDefault,
		Seeded:           a.Seeded,
		TransactionCount: a.TransactionCount,
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())

	accounts, err := h.accounts.List(r.Context(), user)
	if err != nil {
		writeDomainError(w, h.log, err, "list accounts")
		return
	}

	out := make([]*accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": out,
		"count":    len(out),
	})
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Type      string `json:"type"`
		Balance   string `json:"balance"`
		IsDefault bool   `json:"is_default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user := session.UserFromContext(r.Context())

	account, err := h.accounts.Create(r.Context(), user, service.CreateAccountInput{
		Name:      req.Name,
		Type:      domain.AccountType(req.Type),
		Balance:   req.Balance,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		writeDomainError(w, h.log, err, "create account")
		return
	}

	h.views.MarkStale(r.Context(), "/dashboard")

	middleware.WriteJSON(w, http.StatusCreated, toAccountResponse(account))
}

// SeedAccount handles POST /api/accounts/{id}/seed
func (h *AccountsHandler) SeedAccount(w http.ResponseWriter, r *http.Request, accountID string) {
	user := session.UserFromContext(r.Context())

	days := h.seedDays
	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Days > 0 {
		days = req.Days
	}

	inserted, err := h.seeder.Seed(r.Context(), user, accountID, days)
	if err != nil {
		writeDomainError(w, h.log, err, "seed account")
		return
	}

	h.log.Info().Str("account_id", accountID).Int("transactions", inserted).Msg("Account seeded")

	h.views.MarkStale(r.Context(), "/dashboard", "/account/"+accountID)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"account_id":   accountID,
		"transactions": inserted,
	})
}
