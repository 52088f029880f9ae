package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/repository/memory"
	"github.com/iliyamo/hotel-room-reservation/internal/utils"
)

type sessionFixture struct {
	store *memory.Store
	clock *fakeClock
	svc   *SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{store: memory.New(), clock: newFakeClock()}
	f.svc = NewSessionService(SessionDeps{
		Config: SessionConfig{
			Secret:     "test-secret",
			Issuer:     "hotel-test",
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		Users:  f.store.Users(),
		Tokens: f.store.Tokens(),
		Clock:  f.clock.Now,
		IDs:    seqIDs("id"),
		Log:    zerolog.Nop(),
	})
	return f
}

func (f *sessionFixture) register(t *testing.T, email string) model.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), email, "password1", "Guest")
	require.NoError(t, err)
	return u
}

func TestLoginIssuesPersistedPair(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	u := f.register(t, "guest@example.com")

	pair, err := f.svc.Login(ctx, "Guest@Example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, 3600, pair.ExpiresIn)
	assert.Equal(t, model.RoleClient, pair.Scope)
	assert.NotEmpty(t, pair.RefreshToken)

	rec, err := f.store.Tokens().GetByHash(ctx, utils.HashRefreshRaw(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, u.ID, rec.UserID)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), rec.ExpiresAt)

	p, err := f.svc.Authenticate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.Principal{UserID: u.ID, Role: model.RoleClient}, p)
}

func TestLoginRejections(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.register(t, "guest@example.com")

	_, err := f.svc.Login(ctx, "guest@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.register(t, "guest@example.com")
	first, err := f.svc.Login(ctx, "guest@example.com", "password1")
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	old, err := f.store.Tokens().GetByHash(ctx, utils.HashRefreshRaw(first.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, model.TokenStateRevoked, old.State(f.clock.Now()))

	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshUnknownEmptyAndExpired(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.register(t, "guest@example.com")

	_, err := f.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Refresh(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrUnauthorized)

	pair, err := f.svc.Login(ctx, "guest@example.com", "password1")
	require.NoError(t, err)
	f.clock.Advance(7 * 24 * time.Hour)
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestConcurrentRefreshExactlyOneWins(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.register(t, "guest@example.com")
	pair, err := f.svc.Login(ctx, "guest@example.com", "password1")
	require.NoError(t, err)

	const n = 8
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Refresh(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrUnauthorized):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, rejected)
}

func TestRoleChangeAppliesOnNextIssuance(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	u := f.register(t, "staff@example.com")
	pair, err := f.svc.Login(ctx, "staff@example.com", "password1")
	require.NoError(t, err)

	f.store.Users().SetRoles(u.ID, []string{model.RoleClient, model.RoleAdmin})

	// the token already issued keeps its role
	p, err := f.svc.Authenticate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleClient, p.Role)

	next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, next.Scope)
	p, err = f.svc.Authenticate(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, p.Role)
}

func TestAuthenticateRejectsExpiredAccessToken(t *testing.T) {
	f := newSessionFixture(t)
	u := f.register(t, "guest@example.com")
	tok, err := f.svc.IssueAccessToken(u.ID, model.RoleClient)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.Authenticate(tok.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Authenticate("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestIssueAccessTokenWithoutSecretFails(t *testing.T) {
	svc := NewSessionService(SessionDeps{Users: memory.New().Users(), Tokens: memory.New().Tokens(), Log: zerolog.Nop()})
	_, err := svc.IssueAccessToken("u", model.RoleClient)
	assert.ErrorIs(t, err, utils.ErrEmptySecret)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	f.register(t, "guest@example.com")
	pair, err := f.svc.Login(ctx, "guest@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, "unknown"))
	require.NoError(t, f.svc.Logout(ctx, ""))

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutAll(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	u := f.register(t, "guest@example.com")
	a, err := f.svc.Login(ctx, "guest@example.com", "password1")
	require.NoError(t, err)
	b, err := f.svc.Login(ctx, "guest@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, f.svc.LogoutAll(ctx, u.ID))
	_, err = f.svc.Refresh(ctx, a.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Refresh(ctx, b.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	u := f.register(t, "  New@Example.com ")
	assert.Equal(t, "new@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, err := f.svc.Register(ctx, "new@example.com", "password1", "Dup")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.Register(ctx, "not-an-email", "password1", "X")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Register(ctx, "short@example.com", "123", "X")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSeedAdmin(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SeedAdmin(ctx, "admin@example.com", "adminpass"))
	require.NoError(t, f.svc.SeedAdmin(ctx, "admin@example.com", "adminpass"))

	pair, err := f.svc.Login(ctx, "admin@example.com", "adminpass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, pair.Scope)
}
