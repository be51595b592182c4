package room

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studyroom/internal/api"
	"studyroom/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ListRooms godoc
// @Summary      List rooms
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} domain.Room
// @Failure      500 {object} api.ErrorResponse
// @Router       /rooms [get]
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch rooms"})
		return
	}

	c.JSON(http.StatusOK, rooms)
}

// GetRoomStatus godoc
// @Summary      Current room status
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        roomID path int true "Room ID"
// @Success      200 {object} room.StatusResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /rooms/{roomID}/status [get]
func (h *Handler) GetRoomStatus(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid room ID"})
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Room not found", Reason: "NotFound"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch room status"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{RoomID: roomID, Status: status})
}

// UpdateRoomStatus godoc
// @Summary      Set room status
// @Description  Admin-only: mark a room IDLE, OCCUPIED or MAINTENANCE
// @Tags         admin,rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomID  path int true "Room ID"
// @Param        request body room.UpdateStatusRequest true "New status"
// @Success      200 {object} domain.Room
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /admin/rooms/{roomID}/status [put]
func (h *Handler) UpdateRoomStatus(c *gin.Context) {
	adminID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	roomID, err := strconv.Atoi(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid room ID"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}
	if errs := api.ValidateStruct(req); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	room, err := h.service.SetStatus(c.Request.Context(), adminID, roomID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrRoomNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Room not found", Reason: "NotFound"})
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update room status"})
		}
		return
	}

	c.JSON(http.StatusOK, room)
}
