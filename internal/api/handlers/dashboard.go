package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/api/middleware"
	"github.com/welthhq/welth/internal/session"
	"github.com/welthhq/welth/internal/store"
)

const recentTransactionLimit = 10

// DashboardHandler assembles the overview endpoint from the account and
// transaction services.
type DashboardHandler struct {
	accounts     AccountAPI
	transactions TransactionAPI
	now          func() time.Time
	log          zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(accounts AccountAPI, transactions TransactionAPI, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		accounts:     accounts,
		transactions: transactions,
		now:          time.Now,
		log:          log,
	}
}

// GetDashboard handles GET /api/dashboard. Anonymous requests get the
// empty shape rather than an error, so the landing page renders.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())

	accounts, err := h.accounts.List(r.Context(), user)
	if err != nil {
		writeDomainError(w, h.log, err, "load dashboard")
		return
	}

	transactions, err := h.transactions.List(r.Context(), user, store.TransactionFilter{})
	if err != nil {
		writeDomainError(w, h.log, err, "load dashboard")
		return
	}

	netWorth := decimal.Zero
	for _, a := range accounts {
		netWorth = netWorth.Add(a.Balance)
	}

	// Current calendar month totals.
	now := h.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	income := decimal.Zero
	expenses := decimal.Zero
	for _, t := range transactions {
		if t.Date.Before(monthStart) {
			continue
		}
		signed := t.SignedAmount()
		if signed.IsPositive() {
			income = income.Add(signed)
		} else {
			expenses = expenses.Sub(signed)
		}
	}

	accountsOut := make([]*accountResponse, 0, len(accounts))
	for _, a := range accounts {
		accountsOut = append(accountsOut, toAccountResponse(a))
	}

	recent := transactions
	if len(recent) > recentTransactionLimit {
		recent = recent[:recentTransactionLimit]
	}
	recentOut := make([]*transactionResponse, 0, len(recent))
	for _, t := range recent {
		recentOut = append(recentOut, toTransactionResponse(t))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts":            accountsOut,
		"net_worth":           netWorth.StringFixed(2),
		"month_income":        income.StringFixed(2),
		"month_expenses":      expenses.StringFixed(2),
		"recent_transactions": recentOut,
	})
}
