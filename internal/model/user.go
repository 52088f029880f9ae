package model

import "time"

// Role names carried in access tokens.
const (
    RoleAdmin  = "Admin"
    RoleClient = "Client"
)

// User represents an application user record as stored in the
// `users` table.  Roles live in the `user_roles` table and are loaded
// separately, at token issuance time, so that role changes only take
// effect on the next issuance.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, lower-cased email address.
//  FullName     – display name.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           string    // users.id
    Email        string    // users.email
    FullName     string    // users.full_name
    PasswordHash string    // users.password_hash
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
}

// PrimaryRole picks the single role an access token is scoped to from a
// user's role set.  Admin wins when present; an empty set yields Client.
func PrimaryRole(roles []string) string {
    for _, r := range roles {
        if r == RoleAdmin {
            return RoleAdmin
        }
    }
    return RoleClient
}

// TokenStatus is the stored state of a refresh token.  Revocation is
// monotonic: a Revoked token never becomes Active again.
type TokenStatus string

const (
    TokenActive  TokenStatus = "Active"
    TokenRevoked TokenStatus = "Revoked"
)

// TokenState is the effective state of a refresh token at a given
// instant.  Expired is derived from ExpiresAt and never stored.
type TokenState string

const (
    TokenStateActive  TokenState = "Active"
    TokenStateRevoked TokenState = "Revoked"
    TokenStateExpired TokenState = "Expired"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  Status    – Active or Revoked.
//  CreatedAt – timestamp of creation.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (nil while active).
type RefreshToken struct {
    ID        string      // refresh_tokens.id
    UserID    string      // refresh_tokens.user_id
    TokenHash string      // refresh_tokens.token_hash
    Status    TokenStatus // refresh_tokens.status
    CreatedAt time.Time   // refresh_tokens.created_at
    ExpiresAt time.Time   // refresh_tokens.expires_at
    RevokedAt *time.Time  // refresh_tokens.revoked_at (nullable)
}

// State returns the effective state at now.  Revocation takes
// precedence over expiry.
func (t RefreshToken) State(now time.Time) TokenState {
    if t.Status == TokenRevoked {
        return TokenStateRevoked
    }
    if !now.Before(t.ExpiresAt) {
        return TokenStateExpired
    }
    return TokenStateActive
}

// Usable reports whether the token can still be redeemed at now.
func (t RefreshToken) Usable(now time.Time) bool {
    return t.State(now) == TokenStateActive
}

// Revoke moves the token to Revoked.  It returns false when the token
// was already revoked, leaving RevokedAt untouched.
func (t *RefreshToken) Revoke(now time.Time) bool {
    if t.Status == TokenRevoked {
        return false
    }
    t.Status = TokenRevoked
    at := now
    t.RevokedAt = &at
    return true
}
