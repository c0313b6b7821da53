package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// KeyStore maps hashed API keys to identities.
type KeyStore interface {
	IdentityForKeyHash(ctx context.Context, keyHash string) (string, error)
}

// HashToken returns the hex sha256 of a bearer token, the form API keys
// are stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// APIKeyResolver resolves opaque API keys.
type APIKeyResolver struct {
	store KeyStore
}

// NewAPIKeyResolver creates a resolver backed by store.
func NewAPIKeyResolver(store KeyStore) *APIKeyResolver {
	return &APIKeyResolver{store: store}
}

func (r *APIKeyResolver) ResolveCaller(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	identity, err := r.store.IdentityForKeyHash(ctx, HashToken(token))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return identity, nil
}

// JWTResolver resolves Ed25519-signed JWTs. The subject claim is the
// caller identity.
type JWTResolver struct {
	issuer   string
	audience string
	key      ed25519.PublicKey
}

// NewJWTResolver creates a resolver from a base64 Ed25519 public key.
func NewJWTResolver(issuer, audience, publicKey string) (*JWTResolver, error) {
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	if issuer == "" || audience == "" {
		return nil, fmt.Errorf("jwt issuer and audience are required")
	}
	keyBytes, err := decodeBase64(strings.TrimSpace(publicKey))
	if err != nil {
		return nil, fmt.Errorf("decode jwt public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("jwt public key must be %d bytes", ed25519.PublicKeySize)
	}
	return &JWTResolver{issuer: issuer, audience: audience, key: ed25519.PublicKey(keyBytes)}, nil
}

func (r *JWTResolver) ResolveCaller(_ context.Context, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(r.issuer),
		jwt.WithAudience(r.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return subject, nil
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(value)
}
