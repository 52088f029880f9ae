package repository

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// BookingTx is the view of the booking table available inside one
// atomic unit opened by RunInRoom.  All reads observe the writes made
// earlier in the same unit, and no other unit can modify bookings of
// the locked room until the unit ends.
type BookingTx interface {
	// Conflicting returns the blocking bookings of roomID whose interval
	// overlaps [start, end), ignoring excludeID.
	Conflicting(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]model.Booking, error)
	// Get loads a booking for update.
	Get(ctx context.Context, id string) (model.Booking, error)
	// Insert adds a new booking.
	Insert(ctx context.Context, b model.Booking) error
	// Update overwrites the mutable fields of an existing booking.
	Update(ctx context.Context, b model.Booking) error
}
