package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type mapKeyStore map[string]string

func (m mapKeyStore) IdentityForKeyHash(_ context.Context, keyHash string) (string, error) {
	identity, ok := m[keyHash]
	if !ok {
		return "", errors.New("not found")
	}
	return identity, nil
}

func TestAPIKeyResolver(t *testing.T) {
	resolver := NewAPIKeyResolver(mapKeyStore{HashToken("secret"): "alice"})

	caller, err := resolver.ResolveCaller(context.Background(), "secret")
	require.NoError(t, err)
	require.Equal(t, "alice", caller)

	_, err = resolver.ResolveCaller(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	require.Len(t, HashToken("secret"), 64)
}

func signToken(t *testing.T, key ed25519.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTResolver(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resolver, err := NewJWTResolver("proofchain-auth", "proofchain", base64.StdEncoding.EncodeToString(pub))
	require.NoError(t, err)

	valid := jwt.RegisteredClaims{
		Issuer:    "proofchain-auth",
		Audience:  jwt.ClaimStrings{"proofchain"},
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	caller, err := resolver.ResolveCaller(context.Background(), signToken(t, priv, valid))
	require.NoError(t, err)
	require.Equal(t, "alice", caller)

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"elsewhere"}
	_, err = resolver.ResolveCaller(context.Background(), signToken(t, priv, wrongAudience))
	require.ErrorIs(t, err, ErrUnauthorized)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = resolver.ResolveCaller(context.Background(), signToken(t, priv, expired))
	require.ErrorIs(t, err, ErrUnauthorized)

	noSubject := valid
	noSubject.Subject = ""
	_, err = resolver.ResolveCaller(context.Background(), signToken(t, priv, noSubject))
	require.ErrorIs(t, err, ErrUnauthorized)

	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = resolver.ResolveCaller(context.Background(), signToken(t, otherPriv, valid))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestNewJWTResolverValidatesKey(t *testing.T) {
	_, err := NewJWTResolver("iss", "aud", base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)

	_, err = NewJWTResolver("", "aud", "")
	require.Error(t, err)
}
