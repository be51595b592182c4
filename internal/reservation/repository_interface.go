package reservation

import (
	"context"
	"time"

	"studyroom/internal/booking"
	"studyroom/internal/domain"
)

// Guard re-checks a candidate inside the create transaction against the rows
// locked for it. A non-nil error aborts the insert.
type Guard func(existing []domain.Reservation, room domain.Room) error

type Repository interface {
	ListActive(ctx context.Context, roomID int, since time.Time) ([]domain.Reservation, error)
	ListByUser(ctx context.Context, userID int, since time.Time) ([]domain.Reservation, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	Create(ctx context.Context, c booking.Candidate, window [2]time.Time, guard Guard) (*domain.Reservation, error)
	Cancel(ctx context.Context, id int64, req domain.CancelRequest) (*domain.Reservation, error)
	GetStatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error)
	GetStatsByRoom(ctx context.Context, from, to time.Time) ([]StatsByRoom, error)
}
