// Package utils holds the credential primitives: access token signing and
// verification, refresh token generation and password hashing.
package utils

import (
    "crypto/rand"     // secure random number generation
    "crypto/sha256"   // SHA‑256 hashing for refresh tokens
    "encoding/base64" // refresh token text encoding
    "encoding/hex"    // hex encoding of token hashes
    "errors"
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5"
)

// refreshTokenBytes is the amount of random data behind a refresh token
// (512 bits).
const refreshTokenBytes = 64

// ErrEmptySecret is returned when a token would be signed or verified
// with an empty key.  There is no unsigned fallback.
var ErrEmptySecret = errors.New("jwt secret is empty")

// Claims are the claims carried by an access token.  Subject holds the
// user id; Role is the single role the token is scoped to.
type Claims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// AccessToken is a signed access token and its expiry.
type AccessToken struct {
    Token string
    Exp   time.Time // UTC
}

// RefreshToken is a freshly generated refresh credential.  Raw goes to
// the client once; only HashRefreshRaw(Raw) is persisted.
type RefreshToken struct {
    Raw string
    Exp time.Time // UTC
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The token
// carries sub, role, iss, iat and exp; exp is now+ttl.
func NewAccessToken(secret, issuer, userID, role string, ttl time.Duration, now time.Time) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, ErrEmptySecret
    }
    now = now.UTC()
    exp := now.Add(ttl)
    claims := Claims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   userID,
            Issuer:    issuer,
            IssuedAt:  jwt.NewNumericDate(now),
            NotBefore: jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, algorithm, issuer and expiry and
// returns the claims.  Tokens signed with anything other than HS256 are
// rejected before the key is consulted.
func ParseAccessToken(secret, issuer, raw string, now time.Time) (*Claims, error) {
    if secret == "" {
        return nil, ErrEmptySecret
    }
    opts := []jwt.ParserOption{
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(func() time.Time { return now }),
    }
    if issuer != "" {
        opts = append(opts, jwt.WithIssuer(issuer))
    }
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, opts...)
    if err != nil {
        return nil, err
    }
    if !tok.Valid || claims.Subject == "" {
        return nil, jwt.ErrTokenInvalidClaims
    }
    return claims, nil
}

// NewRefreshToken draws 64 bytes from crypto/rand and encodes them with
// standard base64.
func NewRefreshToken(ttl time.Duration, now time.Time) (RefreshToken, error) {
    buf := make([]byte, refreshTokenBytes)
    if _, err := rand.Read(buf); err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: base64.StdEncoding.EncodeToString(buf),
        Exp: now.UTC().Add(ttl),
    }, nil
}

// HashRefreshRaw is the hex SHA-256 of a raw refresh token, the form in
// which tokens are stored and looked up.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
