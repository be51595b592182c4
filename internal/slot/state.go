package slot

import "time"

type State string

const (
	StatePast        State = "past"
	StateReserved    State = "reserved"
	StateAvailable   State = "available"
	StateDisplayOnly State = "display-only"
)

// Occupancy answers whether a slot start is covered by a reservation.
type Occupancy interface {
	Contains(start time.Time) bool
}

type SlotState struct {
	Start time.Time `json:"slot_start"`
	State State     `json:"state"`
}

// Resolve classifies one slot. A slot ending exactly at now is already past, and
// past wins over reserved. The result depends on now, so callers re-resolve on
// every tick instead of caching.
func Resolve(s Slot, now time.Time, occ Occupancy) State {
	if s.DisplayOnly() {
		return StateDisplayOnly
	}
	if !s.End().After(now) {
		return StatePast
	}
	if occ != nil && occ.Contains(s.Start) {
		return StateReserved
	}
	return StateAvailable
}

func ResolveDay(g Grid, now time.Time, occ Occupancy, withMarker bool) []SlotState {
	slots := g.Slots()
	out := make([]SlotState, 0, len(slots)+1)
	for _, s := range slots {
		out = append(out, SlotState{Start: s.Start, State: Resolve(s, now, occ)})
	}
	if withMarker {
		m := g.DisplayMarker()
		out = append(out, SlotState{Start: m.Start, State: Resolve(m, now, occ)})
	}
	return out
}
