package reservation

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"studyroom/internal/api"
	"studyroom/internal/auth"
	"studyroom/internal/booking"
	"studyroom/internal/domain"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ListActive godoc
// @Summary      List active reservations
// @Description  RESERVED reservations from the start of today, for one room or all rooms.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        room_id  query     int  false  "Room ID"
// @Success      200      {array}   domain.Reservation
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /reservations/active [get]
func (h *Handler) ListActive(c *gin.Context) {
	roomID := 0
	if v := c.Query("room_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid room ID"})
			return
		}
		roomID = id
	}

	rs, err := h.service.ListActive(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}
	if rs == nil {
		rs = []domain.Reservation{}
	}

	c.JSON(http.StatusOK, rs)
}

// ListMine godoc
// @Summary      List my upcoming reservations
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.Reservation
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /reservations/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	rs, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}
	if rs == nil {
		rs = []domain.Reservation{}
	}

	c.JSON(http.StatusOK, rs)
}

func (h *Handler) bindCandidate(c *gin.Context) (booking.Candidate, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return booking.Candidate{}, false
	}

	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return booking.Candidate{}, false
	}
	if errs := api.ValidateStruct(req); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return booking.Candidate{}, false
	}

	return booking.Candidate{
		UserID: userID,
		RoomID: req.RoomID,
		Start:  req.StartTime,
		End:    req.EndTime,
	}, true
}

// Create godoc
// @Summary      Reserve a room
// @Description  Books [start_time, end_time) for the caller. Boundaries must fall on 10 minute marks; the length must be 60 or 120 minutes.
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      reservation.CreateReservationRequest  true  "Reservation window"
// @Success      201      {object}  domain.Reservation
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      422      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /reservations [post]
func (h *Handler) Create(c *gin.Context) {
	cand, ok := h.bindCandidate(c)
	if !ok {
		return
	}

	res, err := h.service.Create(c.Request.Context(), cand)
	if err != nil {
		if api.RespondRejection(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create reservation"})
		return
	}

	c.JSON(http.StatusCreated, res)
}

// Validate godoc
// @Summary      Dry-run a reservation
// @Description  Runs the booking checks without writing anything.
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      reservation.CreateReservationRequest  true  "Reservation window"
// @Success      200      {object}  reservation.ValidateResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /reservations/validate [post]
func (h *Handler) Validate(c *gin.Context) {
	cand, ok := h.bindCandidate(c)
	if !ok {
		return
	}

	err := h.service.Validate(c.Request.Context(), cand)
	if err == nil {
		c.JSON(http.StatusOK, ValidateResponse{Accepted: true})
		return
	}

	var re *domain.RejectionError
	if errors.As(err, &re) {
		c.JSON(http.StatusOK, ValidateResponse{Reason: string(re.Reason), Detail: re.Detail})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to validate reservation"})
}

// Cancel godoc
// @Summary      Cancel my reservation
// @Description  Allowed while the reservation has not ended.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Reservation ID"
// @Success      200  {object}  reservation.CancelResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /reservations/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	h.cancel(c, domain.BySelf{UserID: userID})
}

// ForceCancel godoc
// @Summary      Force-cancel any reservation
// @Description  Admin-only. No ownership or time checks.
// @Tags         admin,reservations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Reservation ID"
// @Success      200  {object}  reservation.CancelResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /admin/reservations/{id}/force-cancel [post]
func (h *Handler) ForceCancel(c *gin.Context) {
	adminID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	h.cancel(c, domain.ByAdmin{AdminID: adminID})
}

func (h *Handler) cancel(c *gin.Context, req domain.CancelRequest) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid reservation ID"})
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), req, id)
	if err != nil {
		if api.RespondRejection(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to cancel reservation"})
		return
	}

	c.JSON(http.StatusOK, CancelResponse{Message: "Reservation cancelled", Reservation: res})
}

// SlotStates godoc
// @Summary      Slot states for a room and day
// @Description  Every 10 minute slot of the day as past, reserved or available, plus the 23:59 display marker.
// @Tags         rooms
// @Security     BearerAuth
// @Produce      json
// @Param        roomID  path      int     true   "Room ID"
// @Param        date    query     string  false  "Day as YYYY-MM-DD, default today"
// @Success      200     {object}  reservation.SlotStatesResponse
// @Failure      400     {object}  api.ErrorResponse
// @Failure      404     {object}  api.ErrorResponse
// @Router       /rooms/{roomID}/slots [get]
func (h *Handler) SlotStates(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid room ID"})
		return
	}

	resp, err := h.service.SlotStates(c.Request.Context(), roomID, c.Query("date"))
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		if api.RespondRejection(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to resolve slots"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Stats godoc
// @Summary      Reservation analytics
// @Description  Admin-only. Created and cancelled counts grouped by day or room.
// @Tags         admin,reservations
// @Security     BearerAuth
// @Produce      json
// @Param        group_by  query     string  false  "day or room"
// @Param        from      query     string  true   "Start datetime (RFC3339)"
// @Param        to        query     string  true   "End datetime (RFC3339)"
// @Success      200       {object}  map[string]interface{}
// @Failure      400       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /admin/reservations/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "day")
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr == "" || toStr == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "from and to query params are required"})
		return
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid from format, use RFC3339"})
		return
	}

	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid to format, use RFC3339"})
		return
	}

	data, err := h.service.Stats(c.Request.Context(), groupBy, from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidGroupBy) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group_by": groupBy,
		"from":     from,
		"to":       to,
		"data":     data,
	})
}
