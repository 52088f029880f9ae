package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// RoomStatus is the operational status of a physical room.  It is
// owned by the room directory and only read by the reservation core.
type RoomStatus string

const (
    RoomUnavailable RoomStatus = "Unavailable"
    RoomAvailable   RoomStatus = "Available"
    RoomOccupied    RoomStatus = "Occupied"
    RoomMaintenance RoomStatus = "Maintenance"
    RoomCleaning    RoomStatus = "Cleaning"
)

// Bookable reports whether new reservations may be placed on a room in
// this status.  Occupied and Cleaning describe the room today and do not
// block future stays; Maintenance and Unavailable take the room out of
// service.
func (s RoomStatus) Bookable() bool {
    switch s {
    case RoomAvailable, RoomOccupied, RoomCleaning:
        return true
    }
    return false
}

// Category groups rooms and carries the occupancy limit shared by its rooms.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name (e.g. Deluxe, Suite).
//  MaxPeople – maximum number of guests per room.
type Category struct {
    ID        string // categories.id
    Name      string // categories.name
    MaxPeople int    // categories.max_people
}

// Room is the directory view of a room as needed by the reservation
// core.  Price and Discount are exact decimals; Discount is a
// percentage in the range 0–100.  Capacity is taken from the room's
// category.
type Room struct {
    ID         string          // rooms.id
    CategoryID string          // rooms.category_id
    Name       string          // rooms.name
    Price      decimal.Decimal // rooms.price (nightly)
    Discount   decimal.Decimal // rooms.discount (percent)
    Status     RoomStatus      // rooms.status
    Capacity   int             // categories.max_people
    CreatedAt  time.Time       // rooms.created_at
}

// RoomFilter narrows the candidate rooms considered by an availability
// search.  Zero values disable the corresponding filter.
type RoomFilter struct {
    CategoryID  string
    MinCapacity int
}

// Matches reports whether the room satisfies the filter.
func (f RoomFilter) Matches(r Room) bool {
    if f.CategoryID != "" && r.CategoryID != f.CategoryID {
        return false
    }
    if f.MinCapacity > 0 && r.Capacity < f.MinCapacity {
        return false
    }
    return true
}
