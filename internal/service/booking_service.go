package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/hotel-room-reservation/internal/metrics"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/queue"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
)

const publishTimeout = 5 * time.Second

// BookingDeps are the collaborators of a BookingService.  Events, Clock,
// IDs and Log may be left zero.
type BookingDeps struct {
	Rooms    RoomDirectory
	Bookings BookingStore
	Events   EventPublisher
	Clock    Clock
	IDs      IDGenerator
	Log      zerolog.Logger
}

// BookingService owns the booking state machine.  Every write runs in the
// room's atomic unit, so the availability check and the write observe the
// same committed state.
type BookingService struct {
	rooms    RoomDirectory
	bookings BookingStore
	events   EventPublisher
	now      Clock
	newID    IDGenerator
	log      zerolog.Logger
}

func NewBookingService(d BookingDeps) *BookingService {
	s := &BookingService{
		rooms:    d.Rooms,
		bookings: d.Bookings,
		events:   d.Events,
		now:      d.Clock,
		newID:    d.IDs,
		log:      d.Log.With().Str("service", "booking").Logger(),
	}
	if s.events == nil {
		s.events = NopPublisher{}
	}
	if s.now == nil {
		s.now = SystemClock
	}
	if s.newID == nil {
		s.newID = NewUUID
	}
	return s
}

// CreateBookingInput is a reservation request.
type CreateBookingInput struct {
	RoomID    string
	UserID    string
	StartDate time.Time
	EndDate   time.Time
}

// UpdateBookingInput carries an administrative edit.  Nil fields are left
// unchanged; Recalculate re-prices the stay from the room's current rate.
type UpdateBookingInput struct {
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *model.BookingStatus
	Recalculate bool
}

// BookingHistory partitions a user's bookings.
type BookingHistory struct {
	Upcoming  []model.Booking
	Current   []model.Booking
	Completed []model.Booking
	Cancelled []model.Booking
	All       []model.Booking
}

// Create books a room for the caller.  The caller must be the user named
// in the request.  Availability is re-checked under the room lock right
// before the insert; a lock conflict is retried once.
func (s *BookingService) Create(ctx context.Context, p model.Principal, in CreateBookingInput) (model.Booking, error) {
	log := s.log.With().Str("operation", "create").Str("room_id", in.RoomID).Str("user_id", in.UserID).Logger()

	b, err := s.create(ctx, p, in)
	if err != nil {
		if errors.Is(err, ErrRoomUnavailable) {
			metrics.BookingConflicts.Inc()
		}
		log.Warn().Err(err).Str("error_kind", ErrorKind(err)).Msg("booking rejected")
		return model.Booking{}, err
	}
	metrics.BookingsCreated.Inc()
	log.Info().Str("booking_id", b.ID).Str("total_price", b.TotalPrice.StringFixed(2)).Msg("booking created")
	s.publish(ctx, queue.EventCreated, b, p.UserID)
	return b, nil
}

func (s *BookingService) create(ctx context.Context, p model.Principal, in CreateBookingInput) (model.Booking, error) {
	if in.UserID == "" || in.UserID != p.UserID {
		return model.Booking{}, fmt.Errorf("%w: cannot book for another user", ErrForbidden)
	}
	start, end, err := validRange(in.StartDate, in.EndDate)
	if err != nil {
		return model.Booking{}, err
	}
	room, err := s.rooms.GetRoom(ctx, in.RoomID)
	if err != nil {
		return model.Booking{}, notFound(err, fmt.Errorf("%w: %s", ErrRoomNotFound, in.RoomID))
	}
	if !room.Status.Bookable() {
		return model.Booking{}, fmt.Errorf("%w: room %s is %s", ErrRoomUnavailable, room.ID, room.Status)
	}
	price, err := ComputePrice(room.Price, room.Discount, start, end)
	if err != nil {
		return model.Booking{}, err
	}

	now := s.now()
	b := model.Booking{
		ID:         s.newID(),
		RoomID:     room.ID,
		UserID:     in.UserID,
		StartDate:  start,
		EndDate:    end,
		Status:     model.StatusPending,
		TotalPrice: price,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.inRoom(ctx, room.ID, func(tx repository.BookingTx) error {
		if err := ensureFree(ctx, tx, b.RoomID, start, end, ""); err != nil {
			return err
		}
		return tx.Insert(ctx, b)
	})
	if err != nil {
		return model.Booking{}, notFound(err, fmt.Errorf("%w: %s", ErrRoomNotFound, room.ID))
	}
	return b, nil
}

// Cancel moves a Pending or Confirmed booking to Cancelled.  Only the
// owner or an administrator may cancel.  The price is kept.
func (s *BookingService) Cancel(ctx context.Context, p model.Principal, bookingID string) (model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.StatusCancelled, false)
}

// Confirm moves Pending to Confirmed.  Admin only.
func (s *BookingService) Confirm(ctx context.Context, p model.Principal, bookingID string) (model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.StatusConfirmed, true)
}

// CheckIn moves Confirmed to CheckedIn.  Admin only.
func (s *BookingService) CheckIn(ctx context.Context, p model.Principal, bookingID string) (model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.StatusCheckedIn, true)
}

// CheckOut moves CheckedIn to Completed.  Admin only.
func (s *BookingService) CheckOut(ctx context.Context, p model.Principal, bookingID string) (model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.StatusCompleted, true)
}

// MarkNoShow moves Pending or Confirmed to NoShow.  Admin only.
func (s *BookingService) MarkNoShow(ctx context.Context, p model.Principal, bookingID string) (model.Booking, error) {
	return s.transition(ctx, p, bookingID, model.StatusNoShow, true)
}

func (s *BookingService) transition(ctx context.Context, p model.Principal, bookingID string, target model.BookingStatus, adminOnly bool) (model.Booking, error) {
	log := s.log.With().Str("operation", "transition").Str("booking_id", bookingID).Str("to", string(target)).Logger()

	if adminOnly && !p.IsAdmin() {
		err := fmt.Errorf("%w: %s requires an administrator", ErrForbidden, target)
		log.Warn().Err(err).Str("error_kind", ErrorKind(err)).Msg("transition rejected")
		return model.Booking{}, err
	}
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		err = notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
		log.Warn().Err(err).Str("error_kind", ErrorKind(err)).Msg("transition rejected")
		return model.Booking{}, err
	}

	var out model.Booking
	err = s.inRoom(ctx, current.RoomID, func(tx repository.BookingTx) error {
		b, err := tx.Get(ctx, bookingID)
		if err != nil {
			return notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
		}
		if !p.CanAccess(b.UserID) {
			return fmt.Errorf("%w: booking %s belongs to another user", ErrForbidden, b.ID)
		}
		if !b.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: cannot move booking %s from %s to %s", ErrInvalidState, b.ID, b.Status, target)
		}
		b.Status = target
		b.UpdatedAt = s.now()
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		err = notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
		log.Warn().Err(err).Str("error_kind", ErrorKind(err)).Msg("transition rejected")
		return model.Booking{}, err
	}
	metrics.BookingTransitions.WithLabelValues(string(target)).Inc()
	log.Info().Str("actor_id", p.UserID).Msg("booking transitioned")
	s.publish(ctx, queue.EventForStatus(target), out, p.UserID)
	return out, nil
}

// Update applies an administrative edit.  The status may be set to any
// known status.  When the result holds the room and the dates or the
// status changed, availability is re-checked against the other bookings
// of the room.
func (s *BookingService) Update(ctx context.Context, p model.Principal, bookingID string, in UpdateBookingInput) (model.Booking, error) {
	log := s.log.With().Str("operation", "update").Str("booking_id", bookingID).Logger()

	out, err := s.update(ctx, p, bookingID, in)
	if err != nil {
		if errors.Is(err, ErrRoomUnavailable) {
			metrics.BookingConflicts.Inc()
		}
		log.Warn().Err(err).Str("error_kind", ErrorKind(err)).Msg("update rejected")
		return model.Booking{}, err
	}
	log.Info().Str("status", string(out.Status)).Msg("booking updated")
	s.publish(ctx, queue.EventUpdated, out, p.UserID)
	return out, nil
}

func (s *BookingService) update(ctx context.Context, p model.Principal, bookingID string, in UpdateBookingInput) (model.Booking, error) {
	if !p.IsAdmin() {
		return model.Booking{}, fmt.Errorf("%w: update requires an administrator", ErrForbidden)
	}
	if in.Status != nil && !in.Status.IsValid() {
		return model.Booking{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *in.Status)
	}
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
	}
	var room model.Room
	if in.Recalculate {
		room, err = s.rooms.GetRoom(ctx, current.RoomID)
		if err != nil {
			return model.Booking{}, notFound(err, fmt.Errorf("%w: %s", ErrRoomNotFound, current.RoomID))
		}
	}

	var out model.Booking
	err = s.inRoom(ctx, current.RoomID, func(tx repository.BookingTx) error {
		b, err := tx.Get(ctx, bookingID)
		if err != nil {
			return notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
		}
		next := b
		if in.StartDate != nil {
			next.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			next.EndDate = *in.EndDate
		}
		if in.Status != nil {
			next.Status = *in.Status
		}
		next.StartDate, next.EndDate, err = validRange(next.StartDate, next.EndDate)
		if err != nil {
			return err
		}
		changed := !next.StartDate.Equal(b.StartDate) || !next.EndDate.Equal(b.EndDate) || next.Status != b.Status
		if changed && next.Status.Blocking() {
			if err := ensureFree(ctx, tx, next.RoomID, next.StartDate, next.EndDate, next.ID); err != nil {
				return err
			}
		}
		if in.Recalculate {
			next.TotalPrice, err = ComputePrice(room.Price, room.Discount, next.StartDate, next.EndDate)
			if err != nil {
				return err
			}
		}
		next.UpdatedAt = s.now()
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Booking{}, notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
	}
	return out, nil
}

// Delete purges a booking.  Admin only; not a lifecycle transition.
func (s *BookingService) Delete(ctx context.Context, p model.Principal, bookingID string) error {
	log := s.log.With().Str("operation", "delete").Str("booking_id", bookingID).Logger()
	if !p.IsAdmin() {
		err := fmt.Errorf("%w: delete requires an administrator", ErrForbidden)
		log.Warn().Err(err).Str("error_kind", ErrorKind(err)).Msg("delete rejected")
		return err
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err == nil {
		err = s.bookings.Delete(ctx, bookingID)
	}
	if err != nil {
		err = notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
		log.Warn().Err(err).Str("error_kind", ErrorKind(err)).Msg("delete rejected")
		return err
	}
	log.Info().Str("actor_id", p.UserID).Msg("booking deleted")
	s.publish(ctx, queue.EventDeleted, b, p.UserID)
	return nil
}

// Get returns a booking visible to the caller.
func (s *BookingService) Get(ctx context.Context, p model.Principal, bookingID string) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, notFound(err, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID))
	}
	if !p.CanAccess(b.UserID) {
		return model.Booking{}, fmt.Errorf("%w: booking %s belongs to another user", ErrForbidden, b.ID)
	}
	return b, nil
}

// ListByUser returns the bookings of userID, newest stay first.
func (s *BookingService) ListByUser(ctx context.Context, p model.Principal, userID string) ([]model.Booking, error) {
	if !p.CanAccess(userID) {
		return nil, fmt.Errorf("%w: bookings of another user", ErrForbidden)
	}
	return s.bookings.List(ctx, model.BookingFilter{UserID: userID})
}

// ListByRoom returns the bookings of a room.  Admin only.
func (s *BookingService) ListByRoom(ctx context.Context, p model.Principal, roomID string) ([]model.Booking, error) {
	if !p.IsAdmin() {
		return nil, fmt.Errorf("%w: listing by room requires an administrator", ErrForbidden)
	}
	return s.bookings.List(ctx, model.BookingFilter{RoomID: roomID})
}

// ListByStatus accepts a status name or legacy numeric code.  Admin only.
func (s *BookingService) ListByStatus(ctx context.Context, p model.Principal, status string) ([]model.Booking, error) {
	if !p.IsAdmin() {
		return nil, fmt.Errorf("%w: listing by status requires an administrator", ErrForbidden)
	}
	st, err := model.ParseBookingStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.bookings.List(ctx, model.BookingFilter{Status: st})
}

// ListAll returns every booking.  Admin only.
func (s *BookingService) ListAll(ctx context.Context, p model.Principal) ([]model.Booking, error) {
	if !p.IsAdmin() {
		return nil, fmt.Errorf("%w: listing all bookings requires an administrator", ErrForbidden)
	}
	return s.bookings.List(ctx, model.BookingFilter{})
}

// History partitions a user's bookings: upcoming (Pending, Confirmed) by
// start ascending, current (CheckedIn) by start descending, completed by
// end descending, cancelled by start descending, and all by start
// descending.  NoShow bookings only appear in all.
func (s *BookingService) History(ctx context.Context, p model.Principal, userID string) (BookingHistory, error) {
	list, err := s.ListByUser(ctx, p, userID)
	if err != nil {
		return BookingHistory{}, err
	}
	return PartitionHistory(list), nil
}

// PartitionHistory classifies bookings into history buckets.
func PartitionHistory(list []model.Booking) BookingHistory {
	h := BookingHistory{
		Upcoming:  []model.Booking{},
		Current:   []model.Booking{},
		Completed: []model.Booking{},
		Cancelled: []model.Booking{},
		All:       append([]model.Booking{}, list...),
	}
	for _, b := range list {
		switch b.Status {
		case model.StatusPending, model.StatusConfirmed:
			h.Upcoming = append(h.Upcoming, b)
		case model.StatusCheckedIn:
			h.Current = append(h.Current, b)
		case model.StatusCompleted:
			h.Completed = append(h.Completed, b)
		case model.StatusCancelled:
			h.Cancelled = append(h.Cancelled, b)
		}
	}
	byStartAsc := func(v []model.Booking) func(i, j int) bool {
		return func(i, j int) bool { return v[i].StartDate.Before(v[j].StartDate) }
	}
	byStartDesc := func(v []model.Booking) func(i, j int) bool {
		return func(i, j int) bool { return v[i].StartDate.After(v[j].StartDate) }
	}
	sort.SliceStable(h.Upcoming, byStartAsc(h.Upcoming))
	sort.SliceStable(h.Current, byStartDesc(h.Current))
	sort.SliceStable(h.Completed, func(i, j int) bool { return h.Completed[i].EndDate.After(h.Completed[j].EndDate) })
	sort.SliceStable(h.Cancelled, byStartDesc(h.Cancelled))
	sort.SliceStable(h.All, byStartDesc(h.All))
	return h
}

// inRoom runs fn in the room's atomic unit, retrying once when the store
// reports a lock conflict.  A second conflict surfaces as
// ErrRoomUnavailable.
func (s *BookingService) inRoom(ctx context.Context, roomID string, fn func(repository.BookingTx) error) error {
	err := s.bookings.RunInRoom(ctx, roomID, fn)
	if !errors.Is(err, repository.ErrTxConflict) {
		return err
	}
	s.log.Debug().Str("room_id", roomID).Msg("lock conflict; retrying once")
	err = s.bookings.RunInRoom(ctx, roomID, fn)
	if errors.Is(err, repository.ErrTxConflict) {
		return fmt.Errorf("%w: room %s is being booked concurrently", ErrRoomUnavailable, roomID)
	}
	return err
}

func ensureFree(ctx context.Context, tx repository.BookingTx, roomID string, start, end time.Time, excludeID string) error {
	conflicts, err := tx.Conflicting(ctx, roomID, start, end, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: room %s overlaps booking %s", ErrRoomUnavailable, roomID, conflicts[0].ID)
	}
	return nil
}

// publish sends the event without failing the request.
func (s *BookingService) publish(ctx context.Context, t queue.EventType, b model.Booking, actorID string) {
	ev := queue.NewBookingEvent(t, b, actorID, s.now())
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pubCtx, ev); err != nil {
		s.log.Warn().Err(err).Str("booking_id", b.ID).Str("event", string(t)).Msg("event publish failed")
	}
}
