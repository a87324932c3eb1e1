// Package session resolves the acting identity for every operation:
// a provider-verified registered user, or a time-boxed guest tracked by
// a cookie token. Expired guest sessions resolve to no identity.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/welthhq/welth/internal/domain"
	"github.com/welthhq/welth/internal/store"
)

// GuestCookie is the cookie carrying the guest session token.
const GuestCookie = "guest-session"

// ProviderIdentity is what the external auth provider vouches for.
type ProviderIdentity struct {
	ProviderID string
	Email      string
	Name       string
	ImageURL   string
}

// TokenVerifier validates a bearer token with the external auth
// provider. It is a collaborator; this package only consumes its result.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*ProviderIdentity, error)
}

// Resolver determines the acting identity for a request and manages the
// guest session lifecycle.
type Resolver struct {
	store    store.Store
	verifier TokenVerifier
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewResolver creates a resolver. verifier may be nil when provider
// auth is not configured; guests still work.
func NewResolver(s store.Store, verifier TokenVerifier, ttl time.Duration, secure bool) *Resolver {
	return &Resolver{
		store:    s,
		verifier: verifier,
		ttl:      ttl,
		secure:   secure,
		now:      time.Now,
	}
}

// Resolve returns the request's identity, or nil when there is none.
// Provider bearer tokens win over guest cookies; unknown provider users
// are created on first sight.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*domain.User, error) {
	if token := bearerToken(req); token != "" && r.verifier != nil {
		ident, err := r.verifier.Verify(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("verify provider token: %w", err)
		}
		return r.EnsureUser(ctx, ident)
	}

	cookie, err := req.Cookie(GuestCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	return r.resolveGuest(ctx, cookie.Value)
}

// EnsureUser returns the stored user for a provider identity, creating
// it on first sight.
func (r *Resolver) EnsureUser(ctx context.Context, ident *ProviderIdentity) (*domain.User, error) {
	user, err := r.store.GetUserByProviderID(ctx, ident.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := r.now()
	user = &domain.User{
		ID:         uuid.New().String(),
		ProviderID: ident.ProviderID,
		Email:      ident.Email,
		Name:       ident.Name,
		ImageURL:   ident.ImageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateGuest provisions an ephemeral identity with a default CURRENT
// account holding a demo balance, and sets the session cookie. The user
// and account rows commit together.
func (r *Resolver) CreateGuest(ctx context.Context, w http.ResponseWriter) (*domain.User, error) {
	now := r.now()
	token := newGuestToken(now)
	expires := now.Add(r.ttl)

	user := &domain.User{
		ID:         uuid.New().String(),
		ProviderID: token,
		Email:      token + "@guest.local",
		Name:       "Guest User",
		ExpiresAt:  &expires,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	account := &domain.Account{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      "Guest Account",
		Type:      domain.AccountTypeCurrent,
		Balance:   decimal.NewFromInt(1000),
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.store.WithinTx(ctx, func(tx store.Store) error {
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return nil, fmt.Errorf("create guest session: %w", err)
	}

	http.SetCookie(w, r.guestCookie(token, expires))
	return user, nil
}

// SignOutGuest deletes the guest identity (accounts and transactions
// cascade) and clears the cookie. Missing or foreign sessions are not
// an error; the cookie is cleared regardless.
func (r *Resolver) SignOutGuest(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
	defer http.SetCookie(w, r.guestCookie("", time.Unix(0, 0)))

	cookie, err := req.Cookie(GuestCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	user, err := r.store.GetUserByProviderID(ctx, cookie.Value)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !user.IsGuest() {
		return nil
	}

	if err := r.store.DeleteUser(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// PurgeExpiredGuests reaps guests whose window has passed.
func (r *Resolver) PurgeExpiredGuests(ctx context.Context) (int64, error) {
	return r.store.DeleteExpiredGuests(ctx, r.now())
}

func (r *Resolver) resolveGuest(ctx context.Context, token string) (*domain.User, error) {
	if !strings.HasPrefix(token, domain.GuestPrefix) {
		return nil, nil
	}

	user, err := r.store.GetUserByProviderID(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Expired(r.now()) {
		return nil, nil
	}
	return user, nil
}

func (r *Resolver) guestCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     GuestCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func newGuestToken(now time.Time) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s%d_%s", domain.GuestPrefix, now.UnixMilli(), hex.EncodeToString(buf))
}

func bearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
