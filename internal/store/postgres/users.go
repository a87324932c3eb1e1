package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/welthhq/welth/internal/domain"
)

func (s *Store) InsertUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, provider_id, email, name, image_url, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.ProviderID, u.Email, u.Name, nullable(u.ImageURL), u.ExpiresAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByProviderID(ctx context.Context, providerID string) (*domain.User, error) {
	var (
		u        domain.User
		imageURL *string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, provider_id, email, name, image_url, expires_at, created_at, updated_at
		FROM users
		WHERE provider_id = $1
	`, providerID).Scan(&u.ID, &u.ProviderID, &u.Email, &u.Name, &imageURL, &u.ExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by provider id: %w", err)
	}
	if imageURL != nil {
		u.ImageURL = *imageURL
	}
	return &u, nil
}

// DeleteUser removes the user; accounts and transactions cascade.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpiredGuests reaps guest identities whose session window has
// passed. Their accounts and transactions cascade with them.
func (s *Store) DeleteExpiredGuests(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM users
		WHERE provider_id LIKE $1 AND expires_at IS NOT NULL AND expires_at < $2
	`, domain.GuestPrefix+"%", now)
	if err != nil {
		return 0, fmt.Errorf("delete expired guests: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
