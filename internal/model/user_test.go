package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenState(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tok := RefreshToken{Status: TokenActive, ExpiresAt: now.Add(time.Hour)}

	assert.Equal(t, TokenStateActive, tok.State(now))
	assert.Equal(t, TokenStateExpired, tok.State(now.Add(time.Hour)))

	assert.True(t, tok.Revoke(now))
	assert.Equal(t, TokenStateRevoked, tok.State(now))
	first := *tok.RevokedAt

	assert.False(t, tok.Revoke(now.Add(time.Minute)), "revocation must be monotonic")
	assert.Equal(t, first, *tok.RevokedAt)
	assert.False(t, tok.Usable(now))
}

func TestPrimaryRole(t *testing.T) {
	assert.Equal(t, RoleClient, PrimaryRole(nil))
	assert.Equal(t, RoleClient, PrimaryRole([]string{RoleClient}))
	assert.Equal(t, RoleAdmin, PrimaryRole([]string{RoleClient, RoleAdmin}))
}

func TestPrincipalCanAccess(t *testing.T) {
	client := Principal{UserID: "u1", Role: RoleClient}
	admin := Principal{UserID: "a1", Role: RoleAdmin}

	assert.True(t, client.CanAccess("u1"))
	assert.False(t, client.CanAccess("u2"))
	assert.True(t, admin.CanAccess("u2"))
	assert.False(t, Principal{}.CanAccess(""))
}
