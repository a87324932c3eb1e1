package session

import (
	"context"

	"github.com/welthhq/welth/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// WithUser stores the acting identity in the context. Identity always
// travels explicitly in context, never in module state.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the acting identity, or nil when the request
// carries none.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}
