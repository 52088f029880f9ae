// Package memory is an in-process implementation of the repository
// contracts.  It keeps the same atomicity guarantees as the MySQL
// store: booking mutations for one room are serialized by a per-room
// lock and staged writes are applied only when the unit succeeds.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
)

var errHashCollision = errors.New("refresh token hash collision")

// Store holds every table in maps guarded by mu.  The typed views
// returned by Rooms, Bookings, Users and Tokens share it.
type Store struct {
	mu         sync.RWMutex
	categories map[string]model.Category
	rooms      map[string]model.Room
	bookings   map[string]model.Booking
	users      map[string]model.User
	roles      map[string][]string
	tokens     map[string]model.RefreshToken // keyed by hash

	locksMu   sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func New() *Store {
	return &Store{
		categories: make(map[string]model.Category),
		rooms:      make(map[string]model.Room),
		bookings:   make(map[string]model.Booking),
		users:      make(map[string]model.User),
		roles:      make(map[string][]string),
		tokens:     make(map[string]model.RefreshToken),
		roomLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) Rooms() *RoomStore       { return &RoomStore{s: s} }
func (s *Store) Bookings() *BookingStore { return &BookingStore{s: s} }
func (s *Store) Users() *UserStore       { return &UserStore{s: s} }
func (s *Store) Tokens() *TokenStore     { return &TokenStore{s: s} }

// AddCategory inserts or replaces a category.
func (s *Store) AddCategory(c model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	for id, r := range s.rooms {
		if r.CategoryID == c.ID {
			r.Capacity = c.MaxPeople
			s.rooms[id] = r
		}
	}
}

// AddRoom inserts or replaces a room.  Capacity is taken from the
// room's category when the category is known.
func (s *Store) AddRoom(r model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.categories[r.CategoryID]; ok {
		r.Capacity = c.MaxPeople
	}
	s.rooms[r.ID] = r
}

func (s *Store) roomLock(roomID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.roomLocks[roomID]
	if !ok {
		l = &sync.Mutex{}
		s.roomLocks[roomID] = l
	}
	return l
}

// RoomStore is the room directory view.
type RoomStore struct{ s *Store }

func (r *RoomStore) GetRoom(_ context.Context, id string) (model.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return model.Room{}, repository.ErrNotFound
	}
	return room, nil
}

func (r *RoomStore) ListRooms(_ context.Context, f model.RoomFilter) ([]model.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Room, 0, len(r.s.rooms))
	for _, room := range r.s.rooms {
		if f.Matches(room) {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// BookingStore is the booking table view.
type BookingStore struct{ s *Store }

// RunInRoom serializes fn with every other unit on the same room.
// Writes made through the BookingTx are staged and become visible only
// if fn returns nil and ctx is still live.
func (b *BookingStore) RunInRoom(ctx context.Context, roomID string, fn func(repository.BookingTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.s.mu.RLock()
	_, ok := b.s.rooms[roomID]
	b.s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}

	lock := b.s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	tx := &memTx{s: b.s, staged: make(map[string]model.Booking)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for id, bk := range tx.staged {
		b.s.bookings[id] = bk
	}
	return nil
}

func (b *BookingStore) Conflicting(_ context.Context, roomID string, start, end time.Time, excludeID string) ([]model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return conflicts(b.s.bookings, nil, roomID, start, end, excludeID), nil
}

func (b *BookingStore) GetByID(_ context.Context, id string) (model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	bk, ok := b.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return bk, nil
}

// List returns the matching bookings ordered by start date descending.
func (b *BookingStore) List(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, bk := range b.s.bookings {
		if f.Matches(bk) {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (b *BookingStore) Delete(_ context.Context, id string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if _, ok := b.s.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(b.s.bookings, id)
	return nil
}

// memTx is the staged view handed to RunInRoom callbacks.  The room
// lock is held for its whole life.
type memTx struct {
	s      *Store
	staged map[string]model.Booking
}

func (t *memTx) Conflicting(_ context.Context, roomID string, start, end time.Time, excludeID string) ([]model.Booking, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return conflicts(t.s.bookings, t.staged, roomID, start, end, excludeID), nil
}

func (t *memTx) Get(_ context.Context, id string) (model.Booking, error) {
	if bk, ok := t.staged[id]; ok {
		return bk, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	bk, ok := t.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return bk, nil
}

func (t *memTx) Insert(_ context.Context, bk model.Booking) error {
	t.s.mu.RLock()
	_, exists := t.s.bookings[bk.ID]
	t.s.mu.RUnlock()
	if _, staged := t.staged[bk.ID]; exists || staged {
		return fmt.Errorf("booking %s already exists", bk.ID)
	}
	t.staged[bk.ID] = bk
	return nil
}

func (t *memTx) Update(ctx context.Context, bk model.Booking) error {
	if _, err := t.Get(ctx, bk.ID); err != nil {
		return err
	}
	t.staged[bk.ID] = bk
	return nil
}

// conflicts applies the half-open overlap rule to committed rows
// overlaid with staged ones.
func conflicts(committed, staged map[string]model.Booking, roomID string, start, end time.Time, excludeID string) []model.Booking {
	out := make([]model.Booking, 0)
	check := func(bk model.Booking) {
		if bk.RoomID == roomID && bk.ID != excludeID && bk.ConflictsWith(start, end) {
			out = append(out, bk)
		}
	}
	for id, bk := range committed {
		if _, shadowed := staged[id]; shadowed {
			continue
		}
		check(bk)
	}
	for _, bk := range staged {
		check(bk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// UserStore is the identity view.
type UserStore struct{ s *Store }

func (u *UserStore) Create(_ context.Context, user model.User, roles []string) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	if _, ok := u.s.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	u.s.users[user.ID] = user
	u.s.roles[user.ID] = append([]string(nil), roles...)
	return nil
}

func (u *UserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, user := range u.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (u *UserStore) GetByID(_ context.Context, id string) (model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (u *UserStore) GetRoles(_ context.Context, userID string) ([]string, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	roles := append([]string(nil), u.s.roles[userID]...)
	sort.Strings(roles)
	return roles, nil
}

// SetRoles replaces a user's role set.  New roles apply from the next
// token issuance.
func (u *UserStore) SetRoles(userID string, roles []string) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.roles[userID] = append([]string(nil), roles...)
}

// TokenStore is the refresh token view.
type TokenStore struct{ s *Store }

func (t *TokenStore) Store(_ context.Context, tok model.RefreshToken) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.tokens[tok.TokenHash]; ok {
		return errHashCollision
	}
	t.s.tokens[tok.TokenHash] = tok
	return nil
}

func (t *TokenStore) GetByHash(_ context.Context, hash string) (model.RefreshToken, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tok, ok := t.s.tokens[hash]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return tok, nil
}

// Rotate revokes oldHash and stores next under one write lock.
func (t *TokenStore) Rotate(ctx context.Context, oldHash string, next model.RefreshToken, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	old, ok := t.s.tokens[oldHash]
	if !ok || old.UserID != next.UserID || !old.Usable(now) {
		return repository.ErrTokenInactive
	}
	if _, clash := t.s.tokens[next.TokenHash]; clash {
		return errHashCollision
	}
	old.Revoke(now)
	t.s.tokens[oldHash] = old
	t.s.tokens[next.TokenHash] = next
	return nil
}

func (t *TokenStore) Revoke(_ context.Context, hash string, now time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tok, ok := t.s.tokens[hash]
	if !ok {
		return nil
	}
	if tok.Revoke(now) {
		t.s.tokens[hash] = tok
	}
	return nil
}

func (t *TokenStore) RevokeAllForUser(_ context.Context, userID string, now time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for hash, tok := range t.s.tokens {
		if tok.UserID == userID && tok.Revoke(now) {
			t.s.tokens[hash] = tok
		}
	}
	return nil
}
