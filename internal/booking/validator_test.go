package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom/internal/availability"
	"studyroom/internal/domain"
	"studyroom/internal/slot"
)

var kst = time.FixedZone("KST", 9*60*60)

func at(h, m int) time.Time {
	return time.Date(2026, 10, 20, h, m, 0, 0, kst)
}

var morning = time.Date(2026, 10, 20, 8, 3, 0, 0, kst)

func rooms(ids ...int) []domain.Room {
	out := make([]domain.Room, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Room{ID: id, Status: domain.RoomIdle})
	}
	return out
}

func reserved(id int64, room, user int, start, end time.Time) domain.Reservation {
	return domain.Reservation{
		ID: id, RoomID: room, UserID: user,
		StartTime: start, EndTime: end, Status: domain.StatusReserved,
	}
}

func reasonOf(t *testing.T, err error) domain.Reason {
	t.Helper()
	require.Error(t, err)
	r, ok := domain.ReasonOf(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	return r
}

func newValidator() Validator {
	return NewValidator(kst, DefaultDailyCap)
}

func TestScenarioA_EmptyRoomAccepts(t *testing.T) {
	view := availability.NewSnapshot(nil, rooms(3), kst)
	err := newValidator().Validate(Candidate{UserID: 1, RoomID: 3, Start: at(10, 0), End: at(11, 0)}, view, morning)
	assert.NoError(t, err)
}

func TestScenarioB_OverlapConflicts(t *testing.T) {
	view := availability.NewSnapshot([]domain.Reservation{reserved(1, 3, 2, at(10, 0), at(11, 0))}, rooms(3), kst)
	err := newValidator().Validate(Candidate{UserID: 1, RoomID: 3, Start: at(10, 30), End: at(11, 30)}, view, morning)
	assert.Equal(t, domain.ReasonSlotConflict, reasonOf(t, err))
	assert.True(t, errors.Is(err, domain.ErrSlotConflict))
}

func TestScenarioC_NinetyMinutesRejected(t *testing.T) {
	view := availability.NewSnapshot(nil, rooms(1, 2, 3), kst)
	for _, room := range []int{1, 2, 3} {
		err := newValidator().Validate(Candidate{UserID: 1, RoomID: room, Start: at(13, 0), End: at(14, 30)}, view, morning)
		assert.Equal(t, domain.ReasonInvalidDuration, reasonOf(t, err))
	}
}

func TestScenarioD_MisalignedStart(t *testing.T) {
	view := availability.NewSnapshot(nil, rooms(3), kst)
	err := newValidator().Validate(Candidate{UserID: 1, RoomID: 3, Start: at(9, 5), End: at(10, 5)}, view, morning)
	assert.Equal(t, domain.ReasonMisalignedBoundary, reasonOf(t, err))
}

func TestScenarioE_ElapsedSlotIsInThePast(t *testing.T) {
	view := availability.NewSnapshot(nil, rooms(3), kst)
	now := at(14, 3)
	start := slot.Floor(now, kst)

	err := newValidator().Validate(Candidate{UserID: 1, RoomID: 3, Start: start, End: start.Add(time.Hour)}, view, now)
	assert.Equal(t, domain.ReasonInThePast, reasonOf(t, err))

	next := slot.Ceil(now, kst)
	assert.NoError(t, newValidator().Validate(Candidate{UserID: 1, RoomID: 3, Start: next, End: next.Add(time.Hour)}, view, now))
}

func TestInThePast_AlignedNowIsBookable(t *testing.T) {
	view := availability.NewSnapshot(nil, rooms(3), kst)
	now := at(14, 0)
	assert.NoError(t, newValidator().Validate(Candidate{UserID: 1, RoomID: 3, Start: now, End: now.Add(time.Hour)}, view, now))
}

func TestScenarioF_BackToBackSameUser(t *testing.T) {
	v := newValidator()
	first := Candidate{UserID: 4, RoomID: 3, Start: at(13, 0), End: at(14, 0)}
	second := Candidate{UserID: 4, RoomID: 3, Start: at(14, 0), End: at(15, 0)}

	empty := availability.NewSnapshot(nil, rooms(3), kst)
	require.NoError(t, v.Validate(first, empty, morning))
	require.NoError(t, v.Validate(second, empty, morning))

	afterFirst := availability.NewSnapshot([]domain.Reservation{reserved(1, 3, 4, first.Start, first.End)}, rooms(3), kst)
	assert.NoError(t, v.Validate(second, afterFirst, morning), "adjacent windows share a boundary without overlapping")
}

func TestRoundTrip_AcceptedThenConflicts(t *testing.T) {
	v := newValidator()
	c := Candidate{UserID: 1, RoomID: 2, Start: at(16, 0), End: at(18, 0)}
	require.NoError(t, v.Validate(c, availability.NewSnapshot(nil, rooms(2), kst), morning))

	after := availability.NewSnapshot([]domain.Reservation{reserved(10, 2, 1, c.Start, c.End)}, rooms(2), kst)
	slot.Walk(c.Start, c.End, kst, func(tm time.Time) bool {
		assert.True(t, after.Occupied(2, tm))
		return true
	})

	other := Candidate{UserID: 9, RoomID: 2, Start: c.Start, End: c.End}
	assert.Equal(t, domain.ReasonSlotConflict, reasonOf(t, v.Validate(other, after, morning)))
}

func TestRoomUnavailable(t *testing.T) {
	view := availability.NewSnapshot(nil, []domain.Room{
		{ID: 1, Status: domain.RoomMaintenance},
		{ID: 2, Status: domain.RoomOccupied},
		{ID: 3, Status: "BROKEN"},
	}, kst)
	v := newValidator()

	assert.Equal(t, domain.ReasonRoomUnavailable, reasonOf(t, v.Validate(Candidate{RoomID: 1, Start: at(10, 0), End: at(11, 0)}, view, morning)))
	assert.NoError(t, v.Validate(Candidate{RoomID: 2, Start: at(10, 0), End: at(11, 0)}, view, morning))
	assert.Equal(t, domain.ReasonRoomUnavailable, reasonOf(t, v.Validate(Candidate{RoomID: 3, Start: at(10, 0), End: at(11, 0)}, view, morning)))
	assert.Equal(t, domain.ReasonRoomUnavailable, reasonOf(t, v.Validate(Candidate{RoomID: 99, Start: at(10, 0), End: at(11, 0)}, view, morning)))
}

func TestCheckOrder(t *testing.T) {
	view := availability.NewSnapshot(
		[]domain.Reservation{reserved(1, 1, 2, at(10, 0), at(12, 0))},
		[]domain.Room{{ID: 1, Status: domain.RoomMaintenance}},
		kst,
	)
	v := newValidator()
	now := at(11, 3)

	tests := []struct {
		name string
		c    Candidate
		want domain.Reason
	}{
		{"misaligned beats everything", Candidate{RoomID: 1, Start: at(9, 5), End: at(10, 35)}, domain.ReasonMisalignedBoundary},
		{"past beats duration", Candidate{RoomID: 1, Start: at(9, 0), End: at(10, 30)}, domain.ReasonInThePast},
		{"duration beats conflict", Candidate{RoomID: 1, Start: at(11, 10), End: at(11, 40)}, domain.ReasonInvalidDuration},
		{"conflict beats room status", Candidate{RoomID: 1, Start: at(11, 10), End: at(12, 10)}, domain.ReasonSlotConflict},
		{"room status last of the core checks", Candidate{RoomID: 1, Start: at(12, 0), End: at(13, 0)}, domain.ReasonRoomUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reasonOf(t, v.Validate(tt.c, view, now)))
		})
	}
}

func TestDailyCap(t *testing.T) {
	v := newValidator()
	view := availability.NewSnapshot([]domain.Reservation{
		reserved(1, 1, 5, at(9, 0), at(10, 0)),
	}, rooms(1, 2), kst)

	assert.NoError(t, v.Validate(Candidate{UserID: 5, RoomID: 2, Start: at(15, 0), End: at(16, 0)}, view, morning))
	assert.Equal(t, domain.ReasonDailyCapExceeded,
		reasonOf(t, v.Validate(Candidate{UserID: 5, RoomID: 2, Start: at(15, 0), End: at(17, 0)}, view, morning)))

	tomorrow := at(15, 0).AddDate(0, 0, 1)
	assert.NoError(t, v.Validate(Candidate{UserID: 5, RoomID: 2, Start: tomorrow, End: tomorrow.Add(2 * time.Hour)}, view, morning))

	uncapped := NewValidator(kst, 0)
	assert.NoError(t, uncapped.Validate(Candidate{UserID: 5, RoomID: 2, Start: at(15, 0), End: at(17, 0)}, view, morning))
}

func TestStartAndEndOptions(t *testing.T) {
	v := newValidator()
	view := availability.NewSnapshot([]domain.Reservation{reserved(1, 3, 2, at(10, 0), at(11, 0))}, rooms(3), kst)
	grid := slot.NewGrid(at(0, 0), kst)

	starts := v.StartOptions(view, 3, grid, at(9, 3))
	require.NotEmpty(t, starts)
	assert.True(t, at(9, 10).Equal(starts[0]), "first option is now rounded up")
	for _, s := range starts {
		assert.False(t, view.Occupied(3, s))
	}
	assert.Len(t, starts, slot.PerDay-55-6)

	ends := v.EndOptions(view, 3, at(8, 0))
	require.Len(t, ends, 2)
	assert.True(t, at(9, 0).Equal(ends[0]))
	assert.True(t, at(10, 0).Equal(ends[1]))

	ends = v.EndOptions(view, 3, at(9, 0))
	require.Len(t, ends, 1, "two hours from 09:00 would run into the 10:00 booking")
	assert.True(t, at(10, 0).Equal(ends[0]))
}
