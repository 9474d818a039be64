package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/pavelanni/gradesheet/internal/model"
)

// DefaultTokenTTL is the lifetime of an API token when none is given.
const DefaultTokenTTL = 30 * 24 * time.Hour

// CreateAPIToken issues a new bearer token for a user.
func (s *Store) CreateAPIToken(userID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO api_tokens (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(ttl),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAPIToken returns the token record, or nil if it is unknown or expired.
func (s *Store) GetAPIToken(token string) (*model.APIToken, error) {
	var t model.APIToken
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM api_tokens WHERE id = ?`, token,
	).Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(t.ExpiresAt) {
		_ = s.DeleteAPIToken(token)
		return nil, nil
	}
	return &t, nil
}

// DeleteAPIToken revokes a token.
func (s *Store) DeleteAPIToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM api_tokens WHERE id = ?`, token)
	return err
}

// CleanupExpiredTokens removes all expired tokens.
func (s *Store) CleanupExpiredTokens() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM api_tokens WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
