package booking

import (
	"time"

	"studyroom/internal/domain"
	"studyroom/internal/slot"
)

const DefaultDailyCap = 2 * time.Hour

// DefaultDurations are the only booking lengths offered or accepted.
var DefaultDurations = []time.Duration{60 * time.Minute, 120 * time.Minute}

type Candidate struct {
	UserID int
	RoomID int
	Start  time.Time
	End    time.Time
}

// View is the possibly stale availability a candidate is checked against.
type View interface {
	FirstConflict(roomID int, start, end time.Time) (time.Time, int64, bool)
	RoomStatus(roomID int) domain.RoomStatus
	UserMinutes(userID int, day string) time.Duration
}

type Validator struct {
	Location  *time.Location
	Durations []time.Duration
	// DailyCap bounds a user's RESERVED time per local calendar day. Zero
	// disables the check.
	DailyCap time.Duration
}

func NewValidator(loc *time.Location, dailyCap time.Duration) Validator {
	return Validator{
		Location:  loc,
		Durations: DefaultDurations,
		DailyCap:  dailyCap,
	}
}

// Validate returns nil to accept. Checks run in a fixed order and stop at the
// first failure. Acceptance only means the booking is not obviously doomed; the
// store has the final say.
func (v Validator) Validate(c Candidate, view View, now time.Time) error {
	loc := v.location()

	if !slot.Aligned(c.Start, loc) || !slot.Aligned(c.End, loc) {
		return domain.Reject(domain.ReasonMisalignedBoundary,
			"start %s and end %s must fall on %s boundaries",
			c.Start.In(loc).Format("15:04:05"), c.End.In(loc).Format("15:04:05"), slot.Granularity)
	}

	if earliest := slot.Ceil(now, loc); c.Start.Before(earliest) {
		return domain.Reject(domain.ReasonInThePast,
			"start %s is before %s", c.Start.In(loc).Format(time.RFC3339), earliest.Format(time.RFC3339))
	}

	if !v.allowedDuration(c.End.Sub(c.Start)) {
		return domain.Reject(domain.ReasonInvalidDuration,
			"duration %s is not offered", c.End.Sub(c.Start))
	}

	if view != nil {
		if when, owner, found := view.FirstConflict(c.RoomID, c.Start, c.End); found {
			return domain.Reject(domain.ReasonSlotConflict,
				"room %d slot %s is held by reservation %d", c.RoomID, when.In(loc).Format("15:04"), owner)
		}
	}

	status := domain.RoomMaintenance
	if view != nil {
		status = view.RoomStatus(c.RoomID)
	}
	if !status.Bookable() {
		return domain.Reject(domain.ReasonRoomUnavailable, "room %d is %s", c.RoomID, status)
	}

	if v.DailyCap > 0 && view != nil {
		day := c.Start.In(loc).Format(slot.DateLayout)
		used := view.UserMinutes(c.UserID, day)
		if used+c.End.Sub(c.Start) > v.DailyCap {
			return domain.Reject(domain.ReasonDailyCapExceeded,
				"user %d already holds %s on %s, cap is %s", c.UserID, used, day, v.DailyCap)
		}
	}

	return nil
}

func (v Validator) allowedDuration(d time.Duration) bool {
	durations := v.Durations
	if len(durations) == 0 {
		durations = DefaultDurations
	}
	for _, allowed := range durations {
		if d == allowed {
			return true
		}
	}
	return false
}

func (v Validator) location() *time.Location {
	if v.Location == nil {
		return time.UTC
	}
	return v.Location
}
