package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// AvailabilityChecker decides whether rooms are free over a date range.
// Answers are point-in-time reads; writes re-check inside the room's
// atomic unit.
type AvailabilityChecker struct {
	rooms    RoomDirectory
	bookings BookingReader
}

func NewAvailabilityChecker(rooms RoomDirectory, bookings BookingReader) *AvailabilityChecker {
	return &AvailabilityChecker{rooms: rooms, bookings: bookings}
}

// validRange normalises both dates to midnight UTC and requires start < end.
func validRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = model.DateOf(start), model.DateOf(end)
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return start, end, fmt.Errorf("%w: %s..%s", ErrInvalidRange, model.FormatDate(start), model.FormatDate(end))
	}
	return start, end, nil
}

// IsAvailable reports whether no blocking booking of roomID overlaps
// [start, end).
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	start, end, err := validRange(start, end)
	if err != nil {
		return false, err
	}
	if _, err := a.rooms.GetRoom(ctx, roomID); err != nil {
		return false, notFound(err, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID))
	}
	conflicts, err := a.bookings.Conflicting(ctx, roomID, start, end, "")
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// FindAvailable returns the bookable rooms matching the filter that are
// free over [start, end), in directory order.
func (a *AvailabilityChecker) FindAvailable(ctx context.Context, start, end time.Time, f model.RoomFilter) ([]model.Room, error) {
	start, end, err := validRange(start, end)
	if err != nil {
		return nil, err
	}
	candidates, err := a.rooms.ListRooms(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]model.Room, 0, len(candidates))
	for _, r := range candidates {
		if !r.Status.Bookable() || !f.Matches(r) {
			continue
		}
		conflicts, err := a.bookings.Conflicting(ctx, r.ID, start, end, "")
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			out = append(out, r)
		}
	}
	return out, nil
}
