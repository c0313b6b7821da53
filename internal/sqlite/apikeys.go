package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/proofchain/internal/repository"
)

// APIKeyRepository maps hashed bearer tokens to caller identities
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a key hash for identity
func (r *APIKeyRepository) Create(ctx context.Context, keyHash, identity, description string) error {
	if keyHash == "" || identity == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, identity, created_at, description) VALUES (?, ?, ?, ?)`,
		keyHash, identity, time.Now(), description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: key already registered", repository.ErrConflict)
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// IdentityForKeyHash returns the identity that owns keyHash and records
// the key's last use.
func (r *APIKeyRepository) IdentityForKeyHash(ctx context.Context, keyHash string) (string, error) {
	var identity string
	err := r.db.QueryRowContext(ctx, `SELECT identity FROM api_keys WHERE key_hash = ?`, keyHash).Scan(&identity)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now(), keyHash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return identity, nil
}
