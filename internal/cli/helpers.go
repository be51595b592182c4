package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studyroom/internal/booking"
	"studyroom/internal/domain"
	"studyroom/internal/slot"
)

func parseClock(input string) (int, error) {
	parts := strings.Split(strings.TrimSpace(input), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM)", input)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM)", input)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM)", input)
	}
	return hour*60 + minute, nil
}

func parseRoomID(input string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id %q", input)
	}
	return id, nil
}

func parseReservationID(input string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid reservation id %q", input)
	}
	return id, nil
}

// resolveDay turns "", "today", "tomorrow" or YYYY-MM-DD into a grid date.
func resolveDay(input string, now time.Time, loc *time.Location) (string, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "today":
		return slot.NewGrid(now, loc).Date(), nil
	case "tomorrow":
		return slot.NewGrid(now, loc).Next().Date(), nil
	}
	g, err := slot.ParseDay(input, loc)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", input)
	}
	return g.Date(), nil
}

// startAt places a wall clock time on a calendar day in loc.
func startAt(day, clock string, loc *time.Location) (time.Time, error) {
	g, err := slot.ParseDay(day, loc)
	if err != nil {
		return time.Time{}, err
	}
	minutes, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return g.Start().Add(time.Duration(minutes) * time.Minute), nil
}

func candidateFor(userID, roomID int, start time.Time, minutes int) booking.Candidate {
	return booking.Candidate{
		UserID: userID,
		RoomID: roomID,
		Start:  start,
		End:    start.Add(time.Duration(minutes) * time.Minute),
	}
}

func stateMark(s slot.State) byte {
	switch s {
	case slot.StateReserved:
		return '#'
	case slot.StatePast:
		return '-'
	default:
		return '.'
	}
}

// renderDay prints one line per hour with a mark per 10 minute slot. The
// display-only marker is not drawn.
func renderDay(states []slot.SlotState, loc *time.Location) string {
	var b strings.Builder
	line := make([]byte, 0, 6)
	for _, st := range states {
		if st.State == slot.StateDisplayOnly {
			continue
		}
		line = append(line, stateMark(st.State))
		if len(line) == 60/int(slot.Granularity/time.Minute) {
			hour := st.Start.In(loc).Hour()
			fmt.Fprintf(&b, "%02d:00  %s\n", hour, line)
			line = line[:0]
		}
	}
	return b.String()
}

// describe renders a rejection with a hint on what to do next.
func describe(err error) string {
	var re *domain.RejectionError
	if !errors.As(err, &re) {
		return err.Error()
	}
	msg := re.Error()
	switch {
	case re.Reason == domain.ReasonSlotConflict && re.Authoritative:
		msg += " (someone booked it first, pick another slot)"
	case re.Retryable():
		msg += " (try again)"
	}
	return msg
}

func formatTimes(ts []time.Time, loc *time.Location) string {
	labels := make([]string, 0, len(ts))
	for _, t := range ts {
		labels = append(labels, t.In(loc).Format("15:04"))
	}
	return strings.Join(labels, " ")
}
