package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ganot/atelier/internal/repository"
	"github.com/google/uuid"
)

// ErrInvalidKey is returned when a bearer token matches no API key.
var ErrInvalidKey = errors.New("unauthorized: invalid token")

// APIKeyRepository issues API keys and resolves bearer tokens to users.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Issue creates a key for userID and returns the plaintext. Only its hash
// is stored.
func (r *APIKeyRepository) Issue(ctx context.Context, userID, description string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", repository.ErrNotFound
	}
	key := "atl_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, user_id, description) VALUES (?, ?, ?)`,
		HashToken(key), userID, description)
	if err != nil {
		return "", fmt.Errorf("failed to issue api key: %w", mapError(err))
	}
	return key, nil
}

// ResolveUser returns the user that owns token.
func (r *APIKeyRepository) ResolveUser(ctx context.Context, token string) (string, error) {
	var userID string
	err := r.db.GetContext(ctx, &userID, `SELECT user_id FROM api_keys WHERE key_hash = ?`, HashToken(token))
	if err != nil || userID == "" {
		return "", ErrInvalidKey
	}
	_, _ = r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now(), HashToken(token))
	return userID, nil
}

// HashToken returns the stored form of an API key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
