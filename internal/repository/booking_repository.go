package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// BookingRepo provides persistence for bookings.  Every mutation goes
// through RunInRoom so that the availability check and the write for a
// room execute in one transaction holding the room row lock.  All
// dates are stored as DATE columns and read back as UTC midnights.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, room_id, user_id, start_date, end_date, status, total_price, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RunInRoom opens a read-committed transaction, locks the room row with
// SELECT ... FOR UPDATE and runs fn.  Concurrent units for the same room
// queue on that lock, which closes the window between the availability
// check and the insert.  The transaction commits only when fn returns
// nil; any error, including context cancellation, rolls it back.  A
// missing room yields ErrNotFound; lock contention yields ErrTxConflict.
func (r *BookingRepo) RunInRoom(ctx context.Context, roomID string, fn func(BookingTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapTxErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, roomID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return mapTxErr(err)
	}

	if err := fn(&sqlBookingTx{q: tx}); err != nil {
		return mapTxErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapTxErr(err)
	}
	committed = true
	return nil
}

// Conflicting is the lock-free read used by availability queries.  Its
// answer is advisory; RunInRoom re-checks under the lock before writing.
func (r *BookingRepo) Conflicting(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]model.Booking, error) {
	return conflicting(ctx, r.db, roomID, start, end, excludeID, false)
}

// GetByID returns a single booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	return getBooking(ctx, r.db, id, false)
}

// List returns the bookings matching the filter ordered by start date
// descending.  Callers needing another order sort the result.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.RoomID != "" {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY start_date DESC, created_at DESC`
	return queryBookings(ctx, r.db, q, args...)
}

// Delete physically removes a booking.  This is an administrative purge,
// not a lifecycle transition.
func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlBookingTx implements BookingTx on top of a *sql.Tx.
type sqlBookingTx struct {
	q queryer
}

func (t *sqlBookingTx) Conflicting(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]model.Booking, error) {
	return conflicting(ctx, t.q, roomID, start, end, excludeID, true)
}

func (t *sqlBookingTx) Get(ctx context.Context, id string) (model.Booking, error) {
	return getBooking(ctx, t.q, id, true)
}

func (t *sqlBookingTx) Insert(ctx context.Context, b model.Booking) error {
	const q = `INSERT INTO bookings (id, room_id, user_id, start_date, end_date, status, total_price, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.q.ExecContext(ctx, q,
		b.ID, b.RoomID, b.UserID,
		model.FormatDate(b.StartDate), model.FormatDate(b.EndDate),
		string(b.Status), b.TotalPrice.StringFixed(2),
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	return err
}

func (t *sqlBookingTx) Update(ctx context.Context, b model.Booking) error {
	const q = `UPDATE bookings
               SET start_date = ?, end_date = ?, status = ?, total_price = ?, updated_at = ?
               WHERE id = ?`
	res, err := t.q.ExecContext(ctx, q,
		model.FormatDate(b.StartDate), model.FormatDate(b.EndDate),
		string(b.Status), b.TotalPrice.StringFixed(2), b.UpdatedAt.UTC(), b.ID,
	)
	if err != nil {
		return err
	}
	// RowsAffected is 0 when nothing changed, so existence was already
	// established by Get inside the same unit.
	_, err = res.RowsAffected()
	return err
}

// conflicting applies the half-open overlap rule start_date < end AND
// end_date > start to the blocking statuses.  With lock set the rows are
// read FOR UPDATE.
func conflicting(ctx context.Context, q queryer, roomID string, start, end time.Time, excludeID string, lock bool) ([]model.Booking, error) {
	blocking := model.BlockingStatuses()
	query := `SELECT ` + bookingColumns + `
              FROM bookings
              WHERE room_id = ?
                AND status IN (?, ?, ?)
                AND start_date < ?
                AND end_date > ?
                AND id <> ?
              ORDER BY start_date`
	if lock {
		query += ` FOR UPDATE`
	}
	return queryBookings(ctx, q, query,
		roomID,
		string(blocking[0]), string(blocking[1]), string(blocking[2]),
		model.FormatDate(end), model.FormatDate(start),
		excludeID,
	)
}

func getBooking(ctx context.Context, q queryer, id string, lock bool) (model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.RoomID, &b.UserID, &b.StartDate, &b.EndDate, &status, &b.TotalPrice, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	b.StartDate = model.DateOf(b.StartDate)
	b.EndDate = model.DateOf(b.EndDate)
	return b, nil
}

func queryBookings(ctx context.Context, q queryer, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
