package booking

import (
	"fmt"
	"time"

	"studyroom/internal/domain"
)

// AuthorizeCancel decides whether req may cancel r at now.
func AuthorizeCancel(req domain.CancelRequest, r domain.Reservation, now time.Time) error {
	if r.Status == domain.StatusCancelled {
		return domain.Reject(domain.ReasonAlreadyCancelled, "reservation %d is already cancelled", r.ID)
	}

	switch q := req.(type) {
	case domain.BySelf:
		if r.UserID != q.UserID {
			return domain.Reject(domain.ReasonNotOwner, "reservation %d belongs to another user", r.ID)
		}
		if !now.Before(r.EndTime) {
			return domain.Reject(domain.ReasonCancelWindowElapsed, "reservation %d ended at %s", r.ID, r.EndTime.Format(time.RFC3339))
		}
		return nil
	case domain.ByAdmin:
		return nil
	default:
		return fmt.Errorf("unsupported cancel request %T", req)
	}
}
