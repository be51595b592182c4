package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"studyroom/internal/booking"
	"studyroom/internal/db"
	"studyroom/internal/domain"
)

var (
	ErrReservationNotFound                   = errors.New("reservation not found")
	ErrReservationNotFoundOrAlreadyCancelled = errors.New("reservation not found or already cancelled")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// ListActive returns RESERVED rows ending after since, for one room or, with
// roomID 0, for all rooms.
func (r *repository) ListActive(ctx context.Context, roomID int, since time.Time) ([]domain.Reservation, error) {
	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, cancelled_at, cancelled_by, cancelled_as
		FROM reservations
		WHERE status = 'RESERVED' AND end_time > $1
	`
	args := []interface{}{since}

	if roomID > 0 {
		query += " AND room_id = $2"
		args = append(args, roomID)
	}

	query += " ORDER BY room_id ASC, start_time ASC"

	var out []domain.Reservation
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int, since time.Time) ([]domain.Reservation, error) {
	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, cancelled_at, cancelled_by, cancelled_as
		FROM reservations
		WHERE user_id = $1 AND status = 'RESERVED' AND end_time > $2
		ORDER BY start_time ASC
	`

	var out []domain.Reservation
	if err := r.db.SelectContext(ctx, &out, query, userID, since); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, cancelled_at, cancelled_by, cancelled_as
		FROM reservations
		WHERE id = $1
	`

	var res domain.Reservation
	err := r.db.GetContext(ctx, &res, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// Create locks the room row and the user's advisory lock, loads every RESERVED
// row in window for that room or user, runs guard over them and inserts. The
// exclusion constraint is the last line: a violation still surfaces as a
// SlotConflict.
func (r *repository) Create(ctx context.Context, c booking.Candidate, window [2]time.Time, guard Guard) (*domain.Reservation, error) {
	var created domain.Reservation

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var room domain.Room
		err := tx.GetContext(ctx, &room, `
			SELECT id, name, capacity, status, updated_at
			FROM rooms
			WHERE id = $1
			FOR UPDATE
		`, c.RoomID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reject(domain.ReasonNotFound, "room %d does not exist", c.RoomID)
		}
		if err != nil {
			return err
		}
		room.Status = domain.NormalizeRoomStatus(string(room.Status))

		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(c.UserID)); err != nil {
			return err
		}

		var existing []domain.Reservation
		err = tx.SelectContext(ctx, &existing, `
			SELECT id, room_id, user_id, start_time, end_time, status, created_at, cancelled_at, cancelled_by, cancelled_as
			FROM reservations
			WHERE status = 'RESERVED' AND start_time < $1 AND end_time > $2 AND (room_id = $3 OR user_id = $4)
		`, window[1], window[0], c.RoomID, c.UserID)
		if err != nil {
			return err
		}

		if err := guard(existing, room); err != nil {
			return err
		}

		return tx.GetContext(ctx, &created, `
			INSERT INTO reservations (room_id, user_id, start_time, end_time, status)
			VALUES ($1, $2, $3, $4, 'RESERVED')
			RETURNING id, room_id, user_id, start_time, end_time, status, created_at, cancelled_at, cancelled_by, cancelled_as
		`, c.RoomID, c.UserID, c.Start, c.End)
	})
	if err != nil {
		if db.PQCode(err) == db.CodeExclusionViolation {
			return nil, domain.Reject(domain.ReasonSlotConflict, "room %d already has a reservation overlapping %s", c.RoomID, c.Start.Format(time.RFC3339))
		}
		return nil, err
	}

	return &created, nil
}

func (r *repository) Cancel(ctx context.Context, id int64, req domain.CancelRequest) (*domain.Reservation, error) {
	query := `
		UPDATE reservations
		SET status = 'CANCELLED', cancelled_at = NOW(), cancelled_by = $2, cancelled_as = $3
		WHERE id = $1 AND status = 'RESERVED'
		RETURNING id, room_id, user_id, start_time, end_time, status, created_at, cancelled_at, cancelled_by, cancelled_as
	`

	var res domain.Reservation
	err := r.db.GetContext(ctx, &res, query, id, req.ActorID(), string(req.Authority()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFoundOrAlreadyCancelled
	}
	if err != nil {
		return nil, err
	}

	return &res, nil
}
