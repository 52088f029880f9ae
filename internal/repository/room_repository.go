package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// RoomRepo reads the room directory.  Rooms and categories are managed
// elsewhere; the reservation core only needs price, discount, status and
// capacity, so the repository exposes lookups and nothing else.
type RoomRepo struct{ DB *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{DB: db} }

const roomSelect = `SELECT r.id, r.category_id, r.name, r.price, r.discount, r.status, c.max_people, r.created_at
                    FROM rooms r
                    JOIN categories c ON c.id = r.category_id`

// GetRoom returns a room joined with its category capacity.
func (r *RoomRepo) GetRoom(ctx context.Context, id string) (model.Room, error) {
	room, err := scanRoom(r.DB.QueryRowContext(ctx, roomSelect+` WHERE r.id = ? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ErrNotFound
	}
	return room, err
}

// ListRooms returns the rooms matching the filter ordered by name.
func (r *RoomRepo) ListRooms(ctx context.Context, f model.RoomFilter) ([]model.Room, error) {
	q := roomSelect + ` WHERE 1=1`
	var args []any
	if f.CategoryID != "" {
		q += ` AND r.category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.MinCapacity > 0 {
		q += ` AND c.max_people >= ?`
		args = append(args, f.MinCapacity)
	}
	q += ` ORDER BY r.name, r.id`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func scanRoom(row rowScanner) (model.Room, error) {
	var (
		room   model.Room
		status string
	)
	if err := row.Scan(&room.ID, &room.CategoryID, &room.Name, &room.Price, &room.Discount, &status, &room.Capacity, &room.CreatedAt); err != nil {
		return model.Room{}, err
	}
	room.Status = model.RoomStatus(status)
	return room, nil
}
