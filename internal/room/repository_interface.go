package room

import (
	"context"

	"studyroom/internal/domain"
)

type Repository interface {
	GetAllRooms(ctx context.Context) ([]domain.Room, error)
	GetRoomByID(ctx context.Context, id int) (*domain.Room, error)
	UpdateStatus(ctx context.Context, id int, status domain.RoomStatus) (*domain.Room, error)
}
