package model

import (
    "fmt"
    "strconv"
    "strings"
    "time"

    "github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
    StatusPending   BookingStatus = "Pending"
    StatusConfirmed BookingStatus = "Confirmed"
    StatusCancelled BookingStatus = "Cancelled"
    StatusCheckedIn BookingStatus = "CheckedIn"
    StatusCompleted BookingStatus = "Completed"
    StatusNoShow    BookingStatus = "NoShow"
)

// legacyStatusCodes maps the numeric codes used by older clients to
// statuses.  The slice index is the code.
var legacyStatusCodes = []BookingStatus{
    StatusPending,
    StatusConfirmed,
    StatusCancelled,
    StatusCheckedIn,
    StatusCompleted,
    StatusNoShow,
}

// validTransitions is the booking state machine.  Cancelled and NoShow
// are only reachable before check-in.
var validTransitions = map[BookingStatus][]BookingStatus{
    StatusPending:   {StatusConfirmed, StatusCancelled, StatusNoShow},
    StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusNoShow},
    StatusCheckedIn: {StatusCompleted},
    StatusCompleted: {},
    StatusCancelled: {},
    StatusNoShow:    {},
}

// ParseBookingStatus accepts a status name (case-insensitive) or a
// legacy numeric code 0–5.
func ParseBookingStatus(s string) (BookingStatus, error) {
    s = strings.TrimSpace(s)
    if n, err := strconv.Atoi(s); err == nil {
        if n >= 0 && n < len(legacyStatusCodes) {
            return legacyStatusCodes[n], nil
        }
        return "", fmt.Errorf("invalid booking status: %s", s)
    }
    for st := range validTransitions {
        if strings.EqualFold(string(st), s) {
            return st, nil
        }
    }
    return "", fmt.Errorf("invalid booking status: %s", s)
}

// IsValid reports whether s is a known status.
func (s BookingStatus) IsValid() bool {
    _, ok := validTransitions[s]
    return ok
}

// Blocking reports whether a booking in this status holds its room.
// Only Pending, Confirmed and CheckedIn bookings take part in overlap
// checks.
func (s BookingStatus) Blocking() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusCheckedIn:
        return true
    }
    return false
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
    return len(validTransitions[s]) == 0
}

// CanTransitionTo reports whether the state machine allows s -> target.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
    for _, t := range validTransitions[s] {
        if t == target {
            return true
        }
    }
    return false
}

// BlockingStatuses lists the statuses that make a booking hold its room.
func BlockingStatuses() []BookingStatus {
    return []BookingStatus{StatusPending, StatusConfirmed, StatusCheckedIn}
}

// Booking records a stay of one user in one room over the half-open
// date interval [StartDate, EndDate).  TotalPrice is computed once at
// creation and only changes when an administrator explicitly asks for
// a recalculation.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – reserved room.
//  UserID     – guest who owns the booking.
//  StartDate  – arrival date (inclusive).
//  EndDate    – departure date (exclusive).
//  Status     – lifecycle state.
//  TotalPrice – charge for the whole stay.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Booking struct {
    ID         string          // bookings.id
    RoomID     string          // bookings.room_id
    UserID     string          // bookings.user_id
    StartDate  time.Time       // bookings.start_date
    EndDate    time.Time       // bookings.end_date
    Status     BookingStatus   // bookings.status
    TotalPrice decimal.Decimal // bookings.total_price
    CreatedAt  time.Time       // bookings.created_at
    UpdatedAt  time.Time       // bookings.updated_at
}

// Nights is the length of the stay.
func (b Booking) Nights() int {
    return NightsBetween(b.StartDate, b.EndDate)
}

// ConflictsWith reports whether b holds its room during [start, end).
func (b Booking) ConflictsWith(start, end time.Time) bool {
    return b.Status.Blocking() && Overlaps(b.StartDate, b.EndDate, start, end)
}

// BookingFilter selects bookings for listing.  Empty fields match all.
type BookingFilter struct {
    UserID string
    RoomID string
    Status BookingStatus
}

// Matches reports whether b satisfies the filter.
func (f BookingFilter) Matches(b Booking) bool {
    if f.UserID != "" && b.UserID != f.UserID {
        return false
    }
    if f.RoomID != "" && b.RoomID != f.RoomID {
        return false
    }
    if f.Status != "" && b.Status != f.Status {
        return false
    }
    return true
}
