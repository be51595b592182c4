package booking

import (
	"time"

	"studyroom/internal/slot"
)

// StartOptions lists the start times a booking dialog offers for a day: from
// now rounded up to the grid, skipping occupied slots.
func (v Validator) StartOptions(view View, roomID int, grid slot.Grid, now time.Time) []time.Time {
	earliest := slot.Ceil(now, v.location())
	var out []time.Time
	for _, s := range grid.Slots() {
		if s.Start.Before(earliest) {
			continue
		}
		if _, _, taken := view.FirstConflict(roomID, s.Start, s.End()); taken {
			continue
		}
		out = append(out, s.Start)
	}
	return out
}

// EndOptions lists the end times for a chosen start whose whole range is free.
func (v Validator) EndOptions(view View, roomID int, start time.Time) []time.Time {
	durations := v.Durations
	if len(durations) == 0 {
		durations = DefaultDurations
	}
	var out []time.Time
	for _, d := range durations {
		end := start.Add(d)
		if _, _, taken := view.FirstConflict(roomID, start, end); taken {
			continue
		}
		out = append(out, end)
	}
	return out
}
