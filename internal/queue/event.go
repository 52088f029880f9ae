// Package queue defines message payloads exchanged over the message broker
// and the AMQP publisher and consumer that carry them.
package queue

import (
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// BookingEventsQueue is the durable queue all booking lifecycle events go to.
const BookingEventsQueue = "booking.events"

// EventType names a booking lifecycle change.
type EventType string

const (
    EventCreated   EventType = "created"
    EventCancelled EventType = "cancelled"
    EventConfirmed EventType = "confirmed"
    EventCheckedIn EventType = "checked_in"
    EventCompleted EventType = "completed"
    EventNoShow    EventType = "no_show"
    EventUpdated   EventType = "updated"
    EventDeleted   EventType = "deleted"
)

// BookingEvent is published after a booking change has been committed.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingEvent struct {
    Type       EventType `json:"type"`
    BookingID  string    `json:"booking_id"`
    RoomID     string    `json:"room_id"`
    UserID     string    `json:"user_id"`
    StartDate  string    `json:"start_date"`
    EndDate    string    `json:"end_date"`
    Status     string    `json:"status"`
    TotalPrice string    `json:"total_price"`
    ActorID    string    `json:"actor_id,omitempty"`
    OccurredAt string    `json:"occurred_at"`
}

// NewBookingEvent snapshots b for publication.
func NewBookingEvent(t EventType, b model.Booking, actorID string, at time.Time) BookingEvent {
    return BookingEvent{
        Type:       t,
        BookingID:  b.ID,
        RoomID:     b.RoomID,
        UserID:     b.UserID,
        StartDate:  model.FormatDate(b.StartDate),
        EndDate:    model.FormatDate(b.EndDate),
        Status:     string(b.Status),
        TotalPrice: b.TotalPrice.StringFixed(2),
        ActorID:    actorID,
        OccurredAt: at.UTC().Format(time.RFC3339),
    }
}

// EventForStatus maps the status a booking moved to onto its event type.
func EventForStatus(s model.BookingStatus) EventType {
    switch s {
    case model.StatusCancelled:
        return EventCancelled
    case model.StatusConfirmed:
        return EventConfirmed
    case model.StatusCheckedIn:
        return EventCheckedIn
    case model.StatusCompleted:
        return EventCompleted
    case model.StatusNoShow:
        return EventNoShow
    }
    return EventUpdated
}
