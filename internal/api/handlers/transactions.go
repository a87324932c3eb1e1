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
	"github.com/welthhq/welth/internal/store"
)

const dateFormat = "2006-01-02"

// TransactionAPI is the slice of the transaction service the handler
// uses.
type TransactionAPI interface {
	Create(ctx context.Context, user *domain.User, in service.TransactionInput) (*domain.Transaction, error)
	Update(ctx context.Context, user *domain.User, txID string, in service.TransactionInput) (*domain.Transaction, error)
	Delete(ctx context.Context, user *domain.User, txID string) error
	Get(ctx context.Context, user *domain.User, txID string) (*domain.Transaction, error)
	List(ctx context.Context, user *domain.User, f store.TransactionFilter) ([]*domain.Transaction, error)
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	transactions TransactionAPI
	views        *revalidate.Signaler
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(transactions TransactionAPI, views *revalidate.Signaler, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		transactions: transactions,
		views:        views,
		log:          log,
	}
}

type transactionRequest struct {
	AccountID         string  `json:"account_id"`
	Type              string  `json:"type"`
	Amount            string  `json:"amount"`
	Description       string  `json:"description"`
	Date              string  `json:"date"`
	Category          string  `json:"category"`
	ReceiptURL        *string `json:"receipt_url,omitempty"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurringInterval *string `json:"recurring_interval,omitempty"`
}

func (req *transactionRequest) toInput() (service.TransactionInput, error) {
	in := service.TransactionInput{
		AccountID:   req.AccountID,
		Type:        domain.TransactionType(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		ReceiptURL:  req.ReceiptURL,
		IsRecurring: req.IsRecurring,
	}
	if req.Date != "" {
		date, err := time.Parse(dateFormat, req.Date)
		if err != nil {
			return in, err
		}
		in.Date = date
	}
	if req.RecurringInterval != nil {
		interval := domain.RecurringInterval(*req.RecurringInterval)
		in.RecurringInterval = &interval
	}
	return in, nil
}

type transactionResponse struct {
	ID                string  `json:"id"`
	AccountID         string  `json:"account_id"`
	Type              string  `json:"type"`
	Amount            string  `json:"amount"`
	Description       string  `json:"description"`
	Date              string  `json:"date"`
	Category          string  `json:"category"`
	Status            string  `json:"status"`
	ReceiptURL        *string `json:"receipt_url,omitempty"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurringInterval *string `json:"recurring_interval,omitempty"`
	NextRecurringDate *string `json:"next_recurring_date,omitempty"`
}

func toTransactionResponse(t *domain.Transaction) *transactionResponse {
	resp := &transactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Type:        string(t.Type),
		Amount:      t.Amount.StringFixed(2),
		Description: t.Description,
		Date:        t.Date.Format(dateFormat),
		Category:    t.Category,
		Status:      string(t.Status),
		ReceiptURL:  t.ReceiptURL,
		IsRecurring: t.IsRecurring,
	}
	if t.RecurringInterval != nil {
		interval := string(*t.RecurringInterval)
		resp.RecurringInterval = &interval
	}
	if t.NextRecurringDate != nil {
		next := t.NextRecurringDate.Format(dateFormat)
		resp.NextRecurringDate = &next
	}
	return resp
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())

	query := r.URL.Query()
	filter := store.TransactionFilter{
		AccountID: query.Get("account_id"),
		Type:      domain.TransactionType(query.Get("type")),
	}
	if from := query.Get("start_date"); from != "" {
		t, err := time.Parse(dateFormat, from)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		filter.From = &t
	}
	if to := query.Get("end_date"); to != "" {
		t, err := time.Parse(dateFormat, to)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		filter.To = &t
	}

	transactions, err := h.transactions.List(r.Context(), user, filter)
	if err != nil {
		writeDomainError(w, h.log, err, "list transactions")
		return
	}

	out := make([]*transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	user := session.UserFromContext(r.Context())

	tx, err := h.transactions.Create(r.Context(), user, in)
	if err != nil {
		writeDomainError(w, h.log, err, "create transaction")
		return
	}

	h.views.MarkStale(r.Context(), "/dashboard", "/account/"+tx.AccountID)

	middleware.WriteJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, txID string) {
	user := session.UserFromContext(r.Context())

	tx, err := h.transactions.Get(r.Context(), user, txID)
	if err != nil {
		writeDomainError(w, h.log, err, "get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, txID string) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	user := session.UserFromContext(r.Context())

	tx, err := h.transactions.Update(r.Context(), user, txID, in)
	if err != nil {
		writeDomainError(w, h.log, err, "update transaction")
		return
	}

	h.views.MarkStale(r.Context(), "/dashboard", "/account/"+tx.AccountID)

	middleware.WriteJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, txID string) {
	user := session.UserFromContext(r.Context())

	if err := h.transactions.Delete(r.Context(), user, txID); err != nil {
		writeDomainError(w, h.log, err, "delete transaction")
		return
	}

	h.views.MarkStale(r.Context(), "/dashboard")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
