package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/welthhq/welth/internal/api/middleware"
	"github.com/welthhq/welth/internal/domain"
)

// GuestSessionAPI manages the guest identity lifecycle.
type GuestSessionAPI interface {
	CreateGuest(ctx context.Context, w http.ResponseWriter) (*domain.User, error)
	SignOutGuest(ctx context.Context, w http.ResponseWriter, req *http.Request) error
}

// SessionHandler handles guest session endpoints.
type SessionHandler struct {
	sessions GuestSessionAPI
	log      zerolog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions GuestSessionAPI, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

// CreateGuest handles POST /api/guest. It provisions a time-boxed
// identity with a prefilled default account and sets the session
// cookie on the response.
func (h *SessionHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.CreateGuest(r.Context(), w)
	if err != nil {
		writeDomainError(w, h.log, err, "create guest session")
		return
	}

	h.log.Info().Str("user_id", user.ID).Msg("Guest session created")

	var expires string
	if user.ExpiresAt != nil {
		expires = user.ExpiresAt.Format(time.RFC3339)
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id":    user.ID,
		"name":       user.Name,
		"expires_at": expires,
	})
}

// SignOutGuest handles DELETE /api/guest. The guest's data is deleted
// and the cookie cleared; calling it without a session is a no-op.
func (h *SessionHandler) SignOutGuest(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOutGuest(r.Context(), w, r); err != nil {
		writeDomainError(w, h.log, err, "sign out guest")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
