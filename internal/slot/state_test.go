package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_PastIffEndNotAfterNow(t *testing.T) {
	s := Slot{Start: time.Date(2026, 4, 2, 10, 0, 0, 0, kst)}
	end := s.End()

	assert.Equal(t, StateAvailable, Resolve(s, end.Add(-time.Nanosecond), nil))
	assert.Equal(t, StatePast, Resolve(s, end, nil), "slot ending exactly now is past")
	assert.Equal(t, StatePast, Resolve(s, end.Add(time.Second), nil))
	assert.Equal(t, StateAvailable, Resolve(s, s.Start, nil), "current slot is not past")
}

func TestResolve_Precedence(t *testing.T) {
	s := Slot{Start: time.Date(2026, 4, 2, 10, 0, 0, 0, kst)}
	occ := setOccupancy{s.Start.Unix(): true}

	assert.Equal(t, StateReserved, Resolve(s, s.Start.Add(-time.Hour), occ))
	assert.Equal(t, StatePast, Resolve(s, s.End(), occ), "elapsed reserved slot renders as past")
}

func TestResolveDay(t *testing.T) {
	g := NewGrid(time.Date(2026, 4, 2, 0, 0, 0, 0, kst), kst)
	now := time.Date(2026, 4, 2, 9, 3, 0, 0, kst)
	occ := setOccupancy{}
	for i := 0; i < 6; i++ {
		occ[time.Date(2026, 4, 2, 10, 0, 0, 0, kst).Add(time.Duration(i)*Granularity).Unix()] = true
	}

	states := ResolveDay(g, now, occ, true)
	require.Len(t, states, PerDay+1)

	counts := map[State]int{}
	for _, s := range states {
		counts[s.State]++
	}

	// 00:00..08:50 are past (54 slots), 09:00 is current.
	assert.Equal(t, 54, counts[StatePast])
	assert.Equal(t, 6, counts[StateReserved])
	assert.Equal(t, PerDay-54-6, counts[StateAvailable])
	assert.Equal(t, 1, counts[StateDisplayOnly])
	assert.Equal(t, StateAvailable, states[54].State)
}

func TestResolveDay_IsReevaluatedPerCall(t *testing.T) {
	g := NewGrid(time.Date(2026, 4, 2, 0, 0, 0, 0, kst), kst)
	before := ResolveDay(g, time.Date(2026, 4, 2, 12, 0, 0, 0, kst), nil, false)
	after := ResolveDay(g, time.Date(2026, 4, 2, 12, 10, 0, 0, kst), nil, false)

	assert.Equal(t, StateAvailable, before[72].State)
	assert.Equal(t, StatePast, after[72].State)
}
