package domain

import "time"

type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "RESERVED"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation is never edited in place. A changed booking is a cancel followed by
// a new create.
type Reservation struct {
	ID          int64             `db:"id" json:"id"`
	RoomID      int               `db:"room_id" json:"room_id"`
	UserID      int               `db:"user_id" json:"user_id"`
	StartTime   time.Time         `db:"start_time" json:"start_time"`
	EndTime     time.Time         `db:"end_time" json:"end_time"`
	Status      ReservationStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	CancelledAt *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy *int              `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAs *string           `db:"cancelled_as" json:"cancelled_as,omitempty"`
}

func (r Reservation) Active() bool {
	return r.Status == StatusReserved
}

func (r Reservation) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Overlaps reports whether the half-open windows [start, end) intersect.
// Back-to-back windows sharing a boundary do not overlap.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime)
}
