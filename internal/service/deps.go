package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/queue"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
)

// RoomDirectory is the read side of the room catalog.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (model.Room, error)
	ListRooms(ctx context.Context, f model.RoomFilter) ([]model.Room, error)
}

// BookingReader answers lock-free booking queries.
type BookingReader interface {
	Conflicting(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]model.Booking, error)
	GetByID(ctx context.Context, id string) (model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
}

// BookingStore adds the atomic per-room unit and the administrative purge.
type BookingStore interface {
	BookingReader
	RunInRoom(ctx context.Context, roomID string, fn func(repository.BookingTx) error) error
	Delete(ctx context.Context, id string) error
}

// IdentityStore holds accounts and their role sets.
type IdentityStore interface {
	Create(ctx context.Context, u model.User, roles []string) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
}

// TokenStore persists refresh tokens by hash.
type TokenStore interface {
	Store(ctx context.Context, t model.RefreshToken) error
	GetByHash(ctx context.Context, hash string) (model.RefreshToken, error)
	Rotate(ctx context.Context, oldHash string, next model.RefreshToken, now time.Time) error
	Revoke(ctx context.Context, hash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error
}

// EventPublisher receives booking events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

// Clock supplies the current time.
type Clock func() time.Time

// IDGenerator supplies unique identifiers.
type IDGenerator func() string

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// NewUUID returns a random UUID string.
func NewUUID() string { return uuid.NewString() }
