package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyroom/internal/domain"
)

// StatusFor maps a rejection reason onto the HTTP status the store answers with.
func StatusFor(reason domain.Reason) int {
	switch reason {
	case domain.ReasonMisalignedBoundary, domain.ReasonInThePast, domain.ReasonInvalidDuration:
		return http.StatusUnprocessableEntity
	case domain.ReasonSlotConflict, domain.ReasonDailyCapExceeded, domain.ReasonRoomUnavailable,
		domain.ReasonAlreadyCancelled, domain.ReasonCancelWindowElapsed, domain.ReasonAuthoritativeRejection:
		return http.StatusConflict
	case domain.ReasonNotOwner:
		return http.StatusForbidden
	case domain.ReasonNotFound:
		return http.StatusNotFound
	case domain.ReasonNetworkFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondRejection writes err as a rejection body if it carries a reason and
// reports whether it did.
func RespondRejection(c *gin.Context, err error) bool {
	reason, ok := domain.ReasonOf(err)
	if !ok {
		return false
	}
	c.JSON(StatusFor(reason), ErrorResponse{Error: err.Error(), Reason: string(reason)})
	return true
}
