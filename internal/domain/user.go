package domain

import (
	"strings"
	"time"
)

// GuestPrefix marks provider IDs that belong to ephemeral guest identities.
const GuestPrefix = "guest_"

// User is an acting identity: either a registered user backed by the
// external auth provider, or a time-boxed guest tracked by a cookie token.
// For guests, ProviderID holds the generated guest token and ExpiresAt is
// set; deleting a user cascades to their accounts and transactions.
type User struct {
	ID         string
	ProviderID string
	Email      string
	Name       string
	ImageURL   string
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsGuest reports whether the identity is an ephemeral guest.
func (u *User) IsGuest() bool {
	return strings.HasPrefix(u.ProviderID, GuestPrefix)
}

// Expired reports whether a guest identity's session window has passed.
// Registered users never expire.
func (u *User) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}
