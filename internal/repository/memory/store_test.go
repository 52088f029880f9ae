package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seeded() *Store {
	s := New()
	s.AddCategory(model.Category{ID: "cat-1", Name: "Deluxe", MaxPeople: 2})
	s.AddRoom(model.Room{ID: "room-1", CategoryID: "cat-1", Name: "101", Price: decimal.NewFromInt(100), Status: model.RoomAvailable})
	return s
}

func TestRoomCapacityFromCategory(t *testing.T) {
	s := seeded()
	room, err := s.Rooms().GetRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, 2, room.Capacity)

	_, err = s.Rooms().GetRoom(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRunInRoomDiscardsOnError(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Bookings().RunInRoom(ctx, "room-1", func(tx repository.BookingTx) error {
		require.NoError(t, tx.Insert(ctx, model.Booking{ID: "b1", RoomID: "room-1", Status: model.StatusPending,
			StartDate: day("2024-01-01"), EndDate: day("2024-01-03")}))
		// staged rows are visible inside the unit
		got, err := tx.Conflicting(ctx, "room-1", day("2024-01-02"), day("2024-01-04"), "")
		require.NoError(t, err)
		assert.Len(t, got, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Bookings().GetByID(ctx, "b1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRunInRoomDiscardsOnCancelledContext(t *testing.T) {
	s := seeded()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Bookings().RunInRoom(ctx, "room-1", func(tx repository.BookingTx) error {
		cancel()
		return tx.Insert(ctx, model.Booking{ID: "b1", RoomID: "room-1", Status: model.StatusPending,
			StartDate: day("2024-01-01"), EndDate: day("2024-01-03")})
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Bookings().GetByID(context.Background(), "b1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRunInRoomUnknownRoom(t *testing.T) {
	s := seeded()
	called := false
	err := s.Bookings().RunInRoom(context.Background(), "ghost", func(repository.BookingTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, called)
}

func TestConflictingIgnoresReleasedAndTouching(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	require.NoError(t, s.Bookings().RunInRoom(ctx, "room-1", func(tx repository.BookingTx) error {
		for _, b := range []model.Booking{
			{ID: "a", RoomID: "room-1", Status: model.StatusConfirmed, StartDate: day("2024-01-01"), EndDate: day("2024-01-05")},
			{ID: "b", RoomID: "room-1", Status: model.StatusCancelled, StartDate: day("2024-01-05"), EndDate: day("2024-01-08")},
			{ID: "c", RoomID: "room-1", Status: model.StatusNoShow, StartDate: day("2024-01-05"), EndDate: day("2024-01-08")},
		} {
			if err := tx.Insert(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := s.Bookings().Conflicting(ctx, "room-1", day("2024-01-05"), day("2024-01-10"), "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Bookings().Conflicting(ctx, "room-1", day("2024-01-04"), day("2024-01-10"), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	got, err = s.Bookings().Conflicting(ctx, "room-1", day("2024-01-04"), day("2024-01-10"), "a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, model.User{ID: "u1", Email: "A@example.com"}, []string{model.RoleClient}))
	err := s.Users().Create(ctx, model.User{ID: "u2", Email: "a@example.com "}, nil)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	u, err := s.Users().GetByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	roles, err := s.Users().GetRoles(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{model.RoleClient}, roles)
}

func TestTokenRotateIsSingleUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	old := model.RefreshToken{ID: "t1", UserID: "u1", TokenHash: "h1", Status: model.TokenActive, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Tokens().Store(ctx, old))

	next := model.RefreshToken{ID: "t2", UserID: "u1", TokenHash: "h2", Status: model.TokenActive, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Tokens().Rotate(ctx, "h1", next, now))

	again := model.RefreshToken{ID: "t3", UserID: "u1", TokenHash: "h3", Status: model.TokenActive, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	assert.ErrorIs(t, s.Tokens().Rotate(ctx, "h1", again, now), repository.ErrTokenInactive)

	_, err := s.Tokens().GetByHash(ctx, "h3")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := s.Tokens().GetByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, model.TokenStateRevoked, got.State(now))
}

func TestTokenRotateExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Tokens().Store(ctx, model.RefreshToken{ID: "t1", UserID: "u1", TokenHash: "h1", Status: model.TokenActive, ExpiresAt: now}))
	err := s.Tokens().Rotate(ctx, "h1", model.RefreshToken{ID: "t2", UserID: "u1", TokenHash: "h2"}, now)
	assert.ErrorIs(t, err, repository.ErrTokenInactive)
}

func TestRevokeIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Tokens().Store(ctx, model.RefreshToken{ID: "t1", UserID: "u1", TokenHash: "h1", Status: model.TokenActive, ExpiresAt: now.Add(time.Hour)}))

	require.NoError(t, s.Tokens().Revoke(ctx, "h1", now))
	first, _ := s.Tokens().GetByHash(ctx, "h1")
	require.NoError(t, s.Tokens().Revoke(ctx, "h1", now.Add(time.Minute)))
	second, _ := s.Tokens().GetByHash(ctx, "h1")
	assert.Equal(t, first.RevokedAt, second.RevokedAt)

	assert.NoError(t, s.Tokens().Revoke(ctx, "unknown", now))
}
