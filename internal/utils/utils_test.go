package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "hotel", "user-1", "Client", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.Exp)

	claims, err := ParseAccessToken("secret", "hotel", tok.Token, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Client", claims.Role)
}

func TestAccessTokenRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", "hotel", "user-1", "Client", time.Hour, now)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", "hotel", tok.Token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAccessTokenRejectsTampering(t *testing.T) {
	tok, err := NewAccessToken("secret", "hotel", "user-1", "Client", time.Hour, now)
	require.NoError(t, err)

	_, err = ParseAccessToken("other", "hotel", tok.Token, now)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = ParseAccessToken("secret", "elsewhere", tok.Token, now)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	// the final character only carries padding bits, so alter one before it
	raw := []byte(tok.Token)
	i := len(raw) - 5
	if raw[i] == 'A' {
		raw[i] = 'B'
	} else {
		raw[i] = 'A'
	}
	_, err = ParseAccessToken("secret", "hotel", string(raw), now)
	assert.Error(t, err)
}

func TestAccessTokenRejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: "Admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "hotel",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", "hotel", raw, now)
	assert.Error(t, err)
}

func TestEmptySecretIsFatal(t *testing.T) {
	_, err := NewAccessToken("", "hotel", "user-1", "Client", time.Hour, now)
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = ParseAccessToken("", "hotel", "x.y.z", now)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7*24*time.Hour, now)
	require.NoError(t, err)
	b, err := NewRefreshToken(7*24*time.Hour, now)
	require.NoError(t, err)

	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Equal(t, now.Add(7*24*time.Hour), a.Exp)

	decoded, err := base64.StdEncoding.DecodeString(a.Raw)
	require.NoError(t, err)
	assert.Len(t, decoded, 64)

	h := HashRefreshRaw(a.Raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw(a.Raw))
	assert.NotEqual(t, h, HashRefreshRaw(b.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret"))
}
