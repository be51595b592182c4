package reservation

import (
	"time"

	"studyroom/internal/domain"
	"studyroom/internal/slot"
)

type CreateReservationRequest struct {
	RoomID    int       `json:"room_id" binding:"required" validate:"gt=0"`
	StartTime time.Time `json:"start_time" binding:"required" validate:"required"`
	EndTime   time.Time `json:"end_time" binding:"required" validate:"required"`
}

type ValidateResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type CancelResponse struct {
	Message     string              `json:"message" example:"Reservation cancelled"`
	Reservation *domain.Reservation `json:"reservation"`
}

type SlotStatesResponse struct {
	RoomID     int               `json:"room_id"`
	Date       string            `json:"date"`
	RoomStatus domain.RoomStatus `json:"room_status"`
	Slots      []slot.SlotState  `json:"slots"`
}

type StatsByDay struct {
	Bucket    string `db:"bucket" json:"bucket"`
	Created   int    `db:"reservations_created" json:"reservations_created"`
	Cancelled int    `db:"reservations_cancelled" json:"reservations_cancelled"`
}

type StatsByRoom struct {
	RoomID    int    `db:"room_id" json:"room_id"`
	RoomName  string `db:"room_name" json:"room_name"`
	Created   int    `db:"reservations_created" json:"reservations_created"`
	Cancelled int    `db:"reservations_cancelled" json:"reservations_cancelled"`
}
