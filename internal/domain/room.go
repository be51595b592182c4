package domain

import (
	"strings"
	"time"
)

type RoomStatus string

const (
	RoomIdle        RoomStatus = "IDLE"
	RoomOccupied    RoomStatus = "OCCUPIED"
	RoomMaintenance RoomStatus = "MAINTENANCE"
)

type Room struct {
	ID        int        `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Capacity  int        `db:"capacity" json:"capacity"`
	Status    RoomStatus `db:"status" json:"status"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// NormalizeRoomStatus maps a wire value onto a known status. Anything that is not
// recognised is treated as MAINTENANCE so an unknown room is never bookable.
func NormalizeRoomStatus(v string) RoomStatus {
	switch s := RoomStatus(strings.ToUpper(strings.TrimSpace(v))); s {
	case RoomIdle, RoomOccupied, RoomMaintenance:
		return s
	default:
		return RoomMaintenance
	}
}

// Bookable is false only for rooms under maintenance. OCCUPIED describes the room
// right now and does not block future windows.
func (s RoomStatus) Bookable() bool {
	switch s {
	case RoomIdle, RoomOccupied:
		return true
	default:
		return false
	}
}

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomIdle, RoomOccupied, RoomMaintenance:
		return true
	}
	return false
}
