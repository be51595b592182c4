package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyroom/internal/domain"
	"studyroom/internal/slot"
)

var kst = time.FixedZone("KST", 9*60*60)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"23:50", 1430, false},
		{" 7:30 ", 450, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"12", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseClock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIDs(t *testing.T) {
	id, err := parseRoomID("3")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = parseRoomID("0")
	assert.Error(t, err)
	_, err = parseRoomID("abc")
	assert.Error(t, err)

	rid, err := parseReservationID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), rid)

	_, err = parseReservationID("-1")
	assert.Error(t, err)
}

func TestResolveDay(t *testing.T) {
	// 23:30 UTC is already the next day in Seoul
	now := time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)

	day, err := resolveDay("", now, kst)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", day)

	day, err = resolveDay("tomorrow", now, kst)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-21", day)

	day, err = resolveDay("2026-11-02", now, kst)
	require.NoError(t, err)
	assert.Equal(t, "2026-11-02", day)

	_, err = resolveDay("02/11/2026", now, kst)
	assert.Error(t, err)
}

func TestStartAtAndCandidate(t *testing.T) {
	start, err := startAt("2026-10-20", "14:10", kst)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, 10, 20, 14, 10, 0, 0, kst)))

	c := candidateFor(7, 3, start, 120)
	assert.Equal(t, 7, c.UserID)
	assert.Equal(t, 3, c.RoomID)
	assert.Equal(t, 2*time.Hour, c.End.Sub(c.Start))

	_, err = startAt("2026-10-20", "25:00", kst)
	assert.Error(t, err)
}

func TestRenderDay(t *testing.T) {
	grid := slot.NewGrid(time.Date(2026, 10, 20, 0, 0, 0, 0, kst), kst)
	states := slot.ResolveDay(grid, time.Date(2026, 10, 20, 0, 25, 0, 0, kst), nil, true)

	out := renderDay(states, kst)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 24)
	assert.Equal(t, "00:00  --....", lines[0])
	assert.Equal(t, "23:00  ......", lines[23])
}

func TestDescribe(t *testing.T) {
	raced := &domain.RejectionError{Reason: domain.ReasonSlotConflict, Detail: "taken", Authoritative: true}
	assert.Contains(t, describe(raced), "pick another slot")

	local := domain.Reject(domain.ReasonSlotConflict, "taken")
	assert.Equal(t, "SlotConflict: taken", describe(local))

	assert.Contains(t, describe(domain.Reject(domain.ReasonNetworkFailure, "timeout")), "try again")
	assert.Equal(t, "plain", describe(errors.New("plain")))
}

func TestFormatTimes(t *testing.T) {
	ts := []time.Time{
		time.Date(2026, 10, 20, 1, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 20, 2, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "10:00 11:00", formatTimes(ts, kst))
}
