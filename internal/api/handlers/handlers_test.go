package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/receipt"
	"github.com/welthhq/welth/internal/service"
	"github.com/welthhq/welth/internal/session"
	"github.com/welthhq/welth/internal/store"
)

var testLog = zerolog.Nop()

func testUser() *domain.User {
	return &domain.User{ID: "user-1", ProviderID: "clerk-1", Name: "Ada"}
}

func withUser(r *http.Request, u *domain.User) *http.Request {
	if u == nil {
		return r
	}
	return r.WithContext(session.WithUser(r.Context(), u))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

// fakeAccounts implements AccountAPI with func fields.
type fakeAccounts struct {
	createFn func(ctx context.Context, user *domain.User, in service.CreateAccountInput) (*domain.Account, error)
	listFn   func(ctx context.Context, user *domain.User) ([]*domain.Account, error)
}

func (f *fakeAccounts) Create(ctx context.Context, user *domain.User, in service.CreateAccountInput) (*domain.Account, error) {
	return f.createFn(ctx, user, in)
}

func (f *fakeAccounts) List(ctx context.Context, user *domain.User) ([]*domain.Account, error) {
	return f.listFn(ctx, user)
}

type fakeSeeder struct {
	seedFn func(ctx context.Context, user *domain.User, accountID string, days int) (int, error)
}

func (f *fakeSeeder) Seed(ctx context.Context, user *domain.User, accountID string, days int) (int, error) {
	return f.seedFn(ctx, user, accountID, days)
}

// fakeTransactions implements TransactionAPI with func fields.
type fakeTransactions struct {
	createFn func(ctx context.Context, user *domain.User, in service.TransactionInput) (*domain.Transaction, error)
	updateFn func(ctx context.Context, user *domain.User, txID string, in service.TransactionInput) (*domain.Transaction, error)
	deleteFn func(ctx context.Context, user *domain.User, txID string) error
	getFn    func(ctx context.Context, user *domain.User, txID string) (*domain.Transaction, error)
	listFn   func(ctx context.Context, user *domain.User, f store.TransactionFilter) ([]*domain.Transaction, error)
}

func (f *fakeTransactions) Create(ctx context.Context, user *domain.User, in service.TransactionInput) (*domain.Transaction, error) {
	return f.createFn(ctx, user, in)
}

func (f *fakeTransactions) Update(ctx context.Context, user *domain.User, txID string, in service.TransactionInput) (*domain.Transaction, error) {
	return f.updateFn(ctx, user, txID, in)
}

func (f *fakeTransactions) Delete(ctx context.Context, user *domain.User, txID string) error {
	return f.deleteFn(ctx, user, txID)
}

func (f *fakeTransactions) Get(ctx context.Context, user *domain.User, txID string) (*domain.Transaction, error) {
	return f.getFn(ctx, user, txID)
}

func (f *fakeTransactions) List(ctx context.Context, user *domain.User, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	return f.listFn(ctx, user, filter)
}

func TestCreateAccount(t *testing.T) {
	accounts := &fakeAccounts{
		createFn: func(ctx context.Context, user *domain.User, in service.CreateAccountInput) (*domain.Account, error) {
			if user == nil {
				return nil, domain.ErrUnauthorized
			}
			return &domain.Account{
				ID:        "acct-1",
				UserID:    user.ID,
				Name:      in.Name,
				Type:      in.Type,
				Balance:   decimal.RequireFromString(in.Balance),
				IsDefault: true,
			}, nil
		},
	}
	h := NewAccountsHandler(accounts, nil, nil, 30, testLog)

	body := strings.NewReader(`{"name":"Main","type":"CURRENT","balance":"500","is_default":false}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/accounts", body), testUser())
	rec := httptest.NewRecorder()

	h.CreateAccount(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var resp accountResponse
	decodeBody(t, rec, &resp)
	if resp.ID != "acct-1" || resp.Balance != "500.00" || !resp.IsDefault {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateAccountErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"invalid input", fmt.Errorf("%w: bad balance", domain.ErrInvalidArgument), http.StatusBadRequest},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &fakeAccounts{
				createFn: func(context.Context, *domain.User, service.CreateAccountInput) (*domain.Account, error) {
					return nil, tt.err
				},
			}
			h := NewAccountsHandler(accounts, nil, nil, 30, testLog)

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader(`{}`)), testUser())
			rec := httptest.NewRecorder()
			h.CreateAccount(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestListAccountsAnonymousIsEmpty(t *testing.T) {
	accounts := &fakeAccounts{
		listFn: func(ctx context.Context, user *domain.User) ([]*domain.Account, error) {
			if user != nil {
				t.Fatal("expected nil user")
			}
			return nil, nil
		},
	}
	h := NewAccountsHandler(accounts, nil, nil, 30, testLog)

	rec := httptest.NewRecorder()
	h.ListAccounts(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Accounts []*accountResponse `json:"accounts"`
		Count    int                `json:"count"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 0 || len(resp.Accounts) != 0 {
		t.Errorf("anonymous list = %+v, want empty", resp)
	}
}

func TestSeedAccount(t *testing.T) {
	var gotDays int
	seeder := &fakeSeeder{
		seedFn: func(ctx context.Context, user *domain.User, accountID string, days int) (int, error) {
			gotDays = days
			return 45, nil
		},
	}
	h := NewAccountsHandler(nil, seeder, nil, 30, testLog)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/accounts/acct-1/seed", strings.NewReader(`{}`)), testUser())
	rec := httptest.NewRecorder()
	h.SeedAccount(rec, req, "acct-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotDays != 30 {
		t.Errorf("days = %d, want configured default 30", gotDays)
	}
}

func TestSeedAccountAlreadySeeded(t *testing.T) {
	seeder := &fakeSeeder{
		seedFn: func(context.Context, *domain.User, string, int) (int, error) {
			return 0, domain.ErrAlreadySeeded
		},
	}
	h := NewAccountsHandler(nil, seeder, nil, 30, testLog)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/accounts/acct-1/seed", strings.NewReader(`{}`)), testUser())
	rec := httptest.NewRecorder()
	h.SeedAccount(rec, req, "acct-1")

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	transactions := &fakeTransactions{
		createFn: func(ctx context.Context, user *domain.User, in service.TransactionInput) (*domain.Transaction, error) {
			if in.AccountID != "acct-1" || in.Type != domain.TransactionTypeExpense {
				t.Fatalf("input = %+v", in)
			}
			if in.Date.Format("2006-01-02") != "2024-05-01" {
				t.Fatalf("date = %v", in.Date)
			}
			return &domain.Transaction{
				ID:        "tx-1",
				UserID:    user.ID,
				AccountID: in.AccountID,
				Type:      in.Type,
				Amount:    decimal.RequireFromString(in.Amount),
				Date:      in.Date,
				Status:    domain.TransactionStatusCompleted,
			}, nil
		},
	}
	h := NewTransactionsHandler(transactions, nil, testLog)

	body := strings.NewReader(`{"account_id":"acct-1","type":"EXPENSE","amount":"30","date":"2024-05-01","category":"food"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/transactions", body), testUser())
	rec := httptest.NewRecorder()

	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp transactionResponse
	decodeBody(t, rec, &resp)
	if resp.ID != "tx-1" || resp.Amount != "30.00" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateTransactionBadDate(t *testing.T) {
	h := NewTransactionsHandler(&fakeTransactions{}, nil, testLog)

	body := strings.NewReader(`{"account_id":"acct-1","type":"EXPENSE","amount":"30","date":"05/01/2024"}`)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/transactions", body), testUser())
	rec := httptest.NewRecorder()

	h.CreateTransaction(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	transactions := &fakeTransactions{
		getFn: func(context.Context, *domain.User, string) (*domain.Transaction, error) {
			return nil, domain.ErrNotFound
		},
	}
	h := NewTransactionsHandler(transactions, nil, testLog)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/transactions/nope", nil), testUser())
	rec := httptest.NewRecorder()
	h.GetTransaction(rec, req, "nope")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListTransactionsFilter(t *testing.T) {
	var gotFilter store.TransactionFilter
	transactions := &fakeTransactions{
		listFn: func(ctx context.Context, user *domain.User, f store.TransactionFilter) ([]*domain.Transaction, error) {
			gotFilter = f
			return nil, nil
		},
	}
	h := NewTransactionsHandler(transactions, nil, testLog)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/transactions?account_id=acct-1&type=INCOME&start_date=2024-01-01", nil), testUser())
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotFilter.AccountID != "acct-1" || gotFilter.Type != domain.TransactionTypeIncome {
		t.Errorf("filter = %+v", gotFilter)
	}
	if gotFilter.From == nil || gotFilter.From.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("filter.From = %v", gotFilter.From)
	}
	// Empty result must serialize as [], not null.
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestDashboard(t *testing.T) {
	accounts := &fakeAccounts{
		listFn: func(context.Context, *domain.User) ([]*domain.Account, error) {
			return []*domain.Account{
				{ID: "a1", Balance: decimal.NewFromInt(100)},
				{ID: "a2", Balance: decimal.NewFromInt(250)},
			}, nil
		},
	}
	now := time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)
	transactions := &fakeTransactions{
		listFn: func(context.Context, *domain.User, store.TransactionFilter) ([]*domain.Transaction, error) {
			return []*domain.Transaction{
				{ID: "t1", Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(50), Date: now.AddDate(0, 0, -1)},
				{ID: "t2", Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(20), Date: now.AddDate(0, 0, -2)},
				// Previous month, excluded from totals.
				{ID: "t3", Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(999), Date: now.AddDate(0, -1, 0)},
			}, nil
		},
	}
	h := NewDashboardHandler(accounts, transactions, testLog)
	h.now = func() time.Time { return now }

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil), testUser())
	rec := httptest.NewRecorder()
	h.GetDashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		NetWorth      string `json:"net_worth"`
		MonthIncome   string `json:"month_income"`
		MonthExpenses string `json:"month_expenses"`
	}
	decodeBody(t, rec, &resp)
	if resp.NetWorth != "350.00" {
		t.Errorf("net worth = %s, want 350.00", resp.NetWorth)
	}
	if resp.MonthIncome != "50.00" || resp.MonthExpenses != "20.00" {
		t.Errorf("month totals = %s / %s", resp.MonthIncome, resp.MonthExpenses)
	}
}

type fakeScanner struct {
	rec *receipt.Record
	err error
}

func (f *fakeScanner) Scan(ctx context.Context, data []byte, mimeType string) (*receipt.Record, error) {
	return f.rec, f.err
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename)}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestScanReceipt(t *testing.T) {
	scanner := &fakeScanner{rec: &receipt.Record{
		Amount:       decimal.NewFromFloat(42.5),
		Date:         time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC),
		Description:  "Coffee",
		MerchantName: "Blue Bottle",
		Category:     "food",
	}}
	h := NewReceiptsHandler(scanner, nil, testLog)

	body, contentType := multipartBody(t, "file", "receipt.png", "image/png", []byte("png-bytes"))
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/receipts/scan", body), testUser())
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.ScanReceipt(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Amount   string `json:"amount"`
		Merchant string `json:"merchant_name"`
	}
	decodeBody(t, rec, &resp)
	if resp.Amount != "42.50" || resp.Merchant != "Blue Bottle" {
		t.Errorf("response = %+v", resp)
	}
}

func TestScanReceiptRequiresUser(t *testing.T) {
	h := NewReceiptsHandler(&fakeScanner{}, nil, testLog)

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/scan", nil)
	rec := httptest.NewRecorder()
	h.ScanReceipt(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

type fakeGuestSessions struct {
	user *domain.User
	err  error
}

func (f *fakeGuestSessions) CreateGuest(ctx context.Context, w http.ResponseWriter) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	http.SetCookie(w, &http.Cookie{Name: session.GuestCookie, Value: f.user.ProviderID})
	return f.user, nil
}

func (f *fakeGuestSessions) SignOutGuest(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
	return f.err
}

func TestCreateGuestSession(t *testing.T) {
	expires := time.Date(2024, time.May, 2, 12, 0, 0, 0, time.UTC)
	sessions := &fakeGuestSessions{user: &domain.User{
		ID:         "guest-user",
		ProviderID: "guest_1714651200000_abcdef",
		Name:       "Guest User",
		ExpiresAt:  &expires,
	}}
	h := NewSessionHandler(sessions, testLog)

	req := httptest.NewRequest(http.MethodPost, "/api/guest", nil)
	rec := httptest.NewRecorder()
	h.CreateGuest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.GuestCookie {
		t.Errorf("cookies = %+v, want one guest-session cookie", cookies)
	}
	var resp struct {
		UserID    string `json:"user_id"`
		ExpiresAt string `json:"expires_at"`
	}
	decodeBody(t, rec, &resp)
	if resp.UserID != "guest-user" || resp.ExpiresAt == "" {
		t.Errorf("response = %+v", resp)
	}
}
