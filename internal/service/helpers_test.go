package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/queue"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/repository/memory"
)

var (
	guest = model.Principal{UserID: "user-1", Role: model.RoleClient}
	other = model.Principal{UserID: "user-2", Role: model.RoleClient}
	admin = model.Principal{UserID: "admin-1", Role: model.RoleAdmin}
)

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeClock is a settable clock safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seqIDs(prefix string) IDGenerator {
	var n int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&n, 1)) }
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (r *recorder) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type bookingFixture struct {
	store  *memory.Store
	clock  *fakeClock
	events *recorder
	svc    *BookingService
	avail  *AvailabilityChecker
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	s := memory.New()
	s.AddCategory(model.Category{ID: "cat-std", Name: "Standard", MaxPeople: 2})
	s.AddCategory(model.Category{ID: "cat-fam", Name: "Family", MaxPeople: 4})
	s.AddRoom(model.Room{ID: "room-1", CategoryID: "cat-std", Name: "101", Price: decimal.NewFromInt(100), Discount: decimal.NewFromInt(10), Status: model.RoomAvailable})
	s.AddRoom(model.Room{ID: "room-2", CategoryID: "cat-fam", Name: "201", Price: decimal.NewFromInt(180), Status: model.RoomCleaning})
	s.AddRoom(model.Room{ID: "room-3", CategoryID: "cat-fam", Name: "301", Price: decimal.NewFromInt(200), Status: model.RoomMaintenance})

	f := &bookingFixture{store: s, clock: newFakeClock(), events: &recorder{}}
	f.svc = NewBookingService(BookingDeps{
		Rooms:    s.Rooms(),
		Bookings: s.Bookings(),
		Events:   f.events,
		Clock:    f.clock.Now,
		IDs:      seqIDs("bk"),
		Log:      zerolog.Nop(),
	})
	f.avail = NewAvailabilityChecker(s.Rooms(), s.Bookings())
	return f
}

func (f *bookingFixture) book(t *testing.T, p model.Principal, roomID, start, end string) model.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), p, CreateBookingInput{
		RoomID: roomID, UserID: p.UserID, StartDate: date(start), EndDate: date(end),
	})
	if err != nil {
		t.Fatalf("book %s %s..%s: %v", roomID, start, end, err)
	}
	return b
}

// conflictingStore fails the first n units with ErrTxConflict.
type conflictingStore struct {
	BookingStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (c *conflictingStore) RunInRoom(ctx context.Context, roomID string, fn func(repository.BookingTx) error) error {
	c.mu.Lock()
	c.calls++
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	c.mu.Unlock()
	if fail {
		return repository.ErrTxConflict
	}
	return c.BookingStore.RunInRoom(ctx, roomID, fn)
}
