package room

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"studyroom/internal/domain"
)

var ErrRoomNotFound = errors.New("room not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetAllRooms(ctx context.Context) ([]domain.Room, error) {
	query := `
		SELECT id, name, capacity, status, updated_at
		FROM rooms
		ORDER BY id ASC
	`

	var rooms []domain.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].Status = domain.NormalizeRoomStatus(string(rooms[i].Status))
	}

	return rooms, nil
}

func (r *repository) GetRoomByID(ctx context.Context, id int) (*domain.Room, error) {
	query := `
		SELECT id, name, capacity, status, updated_at
		FROM rooms
		WHERE id = $1
	`

	var room domain.Room
	err := r.db.GetContext(ctx, &room, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	room.Status = domain.NormalizeRoomStatus(string(room.Status))

	return &room, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int, status domain.RoomStatus) (*domain.Room, error) {
	query := `
		UPDATE rooms
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, name, capacity, status, updated_at
	`

	var room domain.Room
	err := r.db.GetContext(ctx, &room, query, string(status), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	return &room, nil
}
