package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"studyroom/internal/domain"
)

// Store is the client's local record of bookings the server confirmed. Nothing
// is written here before the store has accepted the booking.
type Store struct {
	db *sqlx.DB
}

type Entry struct {
	ReservationID int64      `json:"reservation_id"`
	RoomID        int        `json:"room_id"`
	UserID        int        `json:"user_id"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	BookedAt      time.Time  `json:"booked_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func (e Entry) Cancelled() bool {
	return e.CancelledAt != nil
}

type Filter struct {
	Upcoming bool
	Now      time.Time
}

type row struct {
	ReservationID int64  `db:"reservation_id"`
	RoomID        int    `db:"room_id"`
	UserID        int    `db:"user_id"`
	StartUnix     int64  `db:"start_unix"`
	EndUnix       int64  `db:"end_unix"`
	BookedUnix    int64  `db:"booked_unix"`
	CancelledUnix *int64 `db:"cancelled_unix"`
}

func (r row) entry() Entry {
	e := Entry{
		ReservationID: r.ReservationID,
		RoomID:        r.RoomID,
		UserID:        r.UserID,
		Start:         time.Unix(r.StartUnix, 0).UTC(),
		End:           time.Unix(r.EndUnix, 0).UTC(),
		BookedAt:      time.Unix(r.BookedUnix, 0).UTC(),
	}
	if r.CancelledUnix != nil {
		t := time.Unix(*r.CancelledUnix, 0).UTC()
		e.CancelledAt = &t
	}
	return e
}

// Open opens or creates the history database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create history dir: %w", err)
			}
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// one connection: sqlite serialises writers, and ":memory:" is per connection
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sqlx.DB) error {
	createTable := `
CREATE TABLE IF NOT EXISTS bookings (
  reservation_id INTEGER PRIMARY KEY,
  room_id INTEGER NOT NULL,
  user_id INTEGER NOT NULL,
  start_unix INTEGER NOT NULL,
  end_unix INTEGER NOT NULL,
  booked_unix INTEGER NOT NULL,
  cancelled_unix INTEGER
);`
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create bookings table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_bookings_start ON bookings(start_unix);"); err != nil {
		return fmt.Errorf("create bookings index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a confirmed reservation. Recording the same id twice keeps the
// first entry.
func (s *Store) Record(ctx context.Context, r domain.Reservation, bookedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO bookings (reservation_id, room_id, user_id, start_unix, end_unix, booked_unix)
VALUES (?, ?, ?, ?, ?, ?);`,
		r.ID, r.RoomID, r.UserID, r.StartTime.Unix(), r.EndTime.Unix(), bookedAt.Unix())
	if err != nil {
		return fmt.Errorf("record booking %d: %w", r.ID, err)
	}
	return nil
}

// MarkCancelled reports whether a matching, not yet cancelled entry existed.
func (s *Store) MarkCancelled(ctx context.Context, reservationID int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET cancelled_unix = ? WHERE reservation_id = ? AND cancelled_unix IS NULL;",
		at.Unix(), reservationID)
	if err != nil {
		return false, fmt.Errorf("mark booking %d cancelled: %w", reservationID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns entries ordered by start. With Upcoming set, only uncancelled
// entries ending after Now are returned.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
SELECT reservation_id, room_id, user_id, start_unix, end_unix, booked_unix, cancelled_unix
FROM bookings`
	var args []any
	if f.Upcoming {
		query += " WHERE cancelled_unix IS NULL AND end_unix > ?"
		args = append(args, f.Now.Unix())
	}
	query += " ORDER BY start_unix"

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}
