package room

import "studyroom/internal/domain"

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" validate:"required,oneof=IDLE OCCUPIED MAINTENANCE"`
}

type StatusResponse struct {
	RoomID int               `json:"room_id"`
	Status domain.RoomStatus `json:"status"`
}
