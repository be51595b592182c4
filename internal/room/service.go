package room

import (
	"context"
	"errors"
	"fmt"

	"studyroom/internal/domain"
	"studyroom/internal/events"
	"studyroom/internal/logger"
	"studyroom/internal/metrics"
)

var ErrInvalidStatus = errors.New("invalid room status")

type Service interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	GetStatus(ctx context.Context, id int) (domain.RoomStatus, error)
	SetStatus(ctx context.Context, adminID, id int, status string) (*domain.Room, error)
}

type service struct {
	repo      Repository
	publisher events.Publisher
}

func NewService(repo Repository, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &service{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *service) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.repo.GetAllRooms(ctx)
}

// GetStatus reports a missing room as an error; callers that must stay total
// treat that as MAINTENANCE.
func (s *service) GetStatus(ctx context.Context, id int) (domain.RoomStatus, error) {
	room, err := s.repo.GetRoomByID(ctx, id)
	if err != nil {
		return domain.RoomMaintenance, err
	}
	return room.Status, nil
}

func (s *service) SetStatus(ctx context.Context, adminID, id int, status string) (*domain.Room, error) {
	st := domain.RoomStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	room, err := s.repo.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}

	metrics.RecordRoomStatusChange(string(st))
	logger.Info("room status changed", "room_id", id, "status", st, "admin_id", adminID)

	ev := events.New(events.RKRoomStatusChanged, id)
	ev.Status = string(st)
	ev.UserID = adminID
	if err := events.Publish(ctx, s.publisher, ev); err != nil {
		logger.Warn("failed to publish room status event", "room_id", id, "error", err)
	}

	return room, nil
}
