package availability

import (
	"sort"
	"time"

	"studyroom/internal/domain"
	"studyroom/internal/slot"
)

// RoomSet maps the slot starts of one room to the reservation covering them.
// Keys are unix seconds so lookups do not depend on the zone of the argument.
type RoomSet struct {
	owners map[int64]int64
}

func (s RoomSet) Contains(start time.Time) bool {
	_, ok := s.owners[start.Unix()]
	return ok
}

func (s RoomSet) Owner(start time.Time) (int64, bool) {
	id, ok := s.owners[start.Unix()]
	return id, ok
}

func (s RoomSet) Len() int {
	return len(s.owners)
}

// Collision is a slot claimed by two RESERVED reservations. The store must never
// produce one; the index reports it instead of silently picking a winner.
type Collision struct {
	RoomID    int
	SlotStart time.Time
	First     int64
	Second    int64
}

type usageKey struct {
	userID int
	day    string
}

// Index is the derived occupancy view. It is immutable after Build and is always
// rebuilt from the full active list, never patched.
type Index struct {
	loc          *time.Location
	rooms        map[int]RoomSet
	usage        map[usageKey]time.Duration
	reservations map[int64]domain.Reservation
	collisions   []Collision
}

// Build walks every RESERVED reservation slot by slot and records which
// reservation covers each slot start. Cancelled entries are ignored.
func Build(reservations []domain.Reservation, loc *time.Location) *Index {
	if loc == nil {
		loc = time.UTC
	}
	ix := &Index{
		loc:          loc,
		rooms:        make(map[int]RoomSet),
		usage:        make(map[usageKey]time.Duration),
		reservations: make(map[int64]domain.Reservation, len(reservations)),
	}

	for _, r := range reservations {
		if !r.Active() || !r.StartTime.Before(r.EndTime) {
			continue
		}
		ix.reservations[r.ID] = r

		set, ok := ix.rooms[r.RoomID]
		if !ok {
			set = RoomSet{owners: make(map[int64]int64)}
			ix.rooms[r.RoomID] = set
		}

		slot.Walk(r.StartTime, r.EndTime, loc, func(t time.Time) bool {
			key := t.Unix()
			if prev, taken := set.owners[key]; taken && prev != r.ID {
				ix.collisions = append(ix.collisions, Collision{
					RoomID:    r.RoomID,
					SlotStart: t,
					First:     prev,
					Second:    r.ID,
				})
				return true
			}
			set.owners[key] = r.ID
			return true
		})

		k := usageKey{userID: r.UserID, day: r.StartTime.In(loc).Format(slot.DateLayout)}
		ix.usage[k] += r.Duration()
	}

	return ix
}

func (ix *Index) Location() *time.Location {
	if ix == nil || ix.loc == nil {
		return time.UTC
	}
	return ix.loc
}

// Room returns the occupancy of one room. Unknown rooms are empty.
func (ix *Index) Room(roomID int) RoomSet {
	if ix == nil {
		return RoomSet{}
	}
	return ix.rooms[roomID]
}

func (ix *Index) Occupied(roomID int, t time.Time) bool {
	return ix.Room(roomID).Contains(slot.Floor(t, ix.Location()))
}

// FirstConflict walks [start, end) and returns the first occupied slot.
func (ix *Index) FirstConflict(roomID int, start, end time.Time) (time.Time, int64, bool) {
	set := ix.Room(roomID)
	var (
		at    time.Time
		owner int64
		found bool
	)
	slot.Walk(start, end, ix.Location(), func(t time.Time) bool {
		if id, ok := set.Owner(t); ok {
			at, owner, found = t, id, true
			return false
		}
		return true
	})
	return at, owner, found
}

func (ix *Index) RangeOccupied(roomID int, start, end time.Time) bool {
	_, _, found := ix.FirstConflict(roomID, start, end)
	return found
}

// UserMinutes is the RESERVED time a user holds on a calendar day, counted by
// the local start date of each reservation.
func (ix *Index) UserMinutes(userID int, day string) time.Duration {
	if ix == nil {
		return 0
	}
	return ix.usage[usageKey{userID: userID, day: day}]
}

func (ix *Index) Reservation(id int64) (domain.Reservation, bool) {
	if ix == nil {
		return domain.Reservation{}, false
	}
	r, ok := ix.reservations[id]
	return r, ok
}

// Reservations returns the active reservations ordered by start then id.
func (ix *Index) Reservations() []domain.Reservation {
	if ix == nil {
		return nil
	}
	out := make([]domain.Reservation, 0, len(ix.reservations))
	for _, r := range ix.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (ix *Index) Collisions() []Collision {
	if ix == nil {
		return nil
	}
	return append([]Collision(nil), ix.collisions...)
}

func (ix *Index) RoomIDs() []int {
	if ix == nil {
		return nil
	}
	ids := make([]int, 0, len(ix.rooms))
	for id := range ix.rooms {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SlotCount is the number of occupied slots across all rooms.
func (ix *Index) SlotCount() int {
	if ix == nil {
		return 0
	}
	n := 0
	for _, set := range ix.rooms {
		n += set.Len()
	}
	return n
}

// Equal compares occupied slot sets, including which reservation owns each slot.
func (ix *Index) Equal(other *Index) bool {
	if ix.SlotCount() != other.SlotCount() {
		return false
	}
	if ix == nil || other == nil {
		return true
	}
	for roomID, set := range ix.rooms {
		o := other.rooms[roomID]
		if set.Len() != o.Len() {
			return false
		}
		for k, v := range set.owners {
			if ov, ok := o.owners[k]; !ok || ov != v {
				return false
			}
		}
	}
	return true
}
