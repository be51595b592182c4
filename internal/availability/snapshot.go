package availability

import (
	"time"

	"studyroom/internal/domain"
)

// Snapshot bundles one rebuilt index with the room statuses fetched alongside it.
// Seq orders snapshots by the refresh that produced them.
type Snapshot struct {
	*Index
	Rooms    map[int]domain.RoomStatus
	Seq      uint64
	SyncedAt time.Time
}

func NewSnapshot(reservations []domain.Reservation, rooms []domain.Room, loc *time.Location) *Snapshot {
	statuses := make(map[int]domain.RoomStatus, len(rooms))
	for _, r := range rooms {
		statuses[r.ID] = domain.NormalizeRoomStatus(string(r.Status))
	}
	return &Snapshot{
		Index: Build(reservations, loc),
		Rooms: statuses,
	}
}

// RoomStatus treats a room the snapshot knows nothing about as under maintenance.
func (s *Snapshot) RoomStatus(roomID int) domain.RoomStatus {
	if s == nil {
		return domain.RoomMaintenance
	}
	st, ok := s.Rooms[roomID]
	if !ok {
		return domain.RoomMaintenance
	}
	return st
}

// WithRoomStatus returns a copy sharing the index but with one room status
// replaced. The receiver is left untouched.
func (s *Snapshot) WithRoomStatus(roomID int, status domain.RoomStatus) *Snapshot {
	next := &Snapshot{}
	if s != nil {
		next.Index, next.Seq, next.SyncedAt = s.Index, s.Seq, s.SyncedAt
	}
	next.Rooms = make(map[int]domain.RoomStatus, len(s.rooms())+1)
	for id, st := range s.rooms() {
		next.Rooms[id] = st
	}
	next.Rooms[roomID] = status
	return next
}

func (s *Snapshot) rooms() map[int]domain.RoomStatus {
	if s == nil {
		return nil
	}
	return s.Rooms
}
