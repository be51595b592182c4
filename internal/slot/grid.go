package slot

import "time"

const (
	// Granularity is the width of one slot and the unit every booking boundary
	// must align to.
	Granularity = 10 * time.Minute

	// PerDay is the slot count of a 24 hour day. Days that cross a daylight
	// saving change have more or fewer; Grid.Slots is authoritative.
	PerDay = int(24 * time.Hour / Granularity)

	DateLayout = "2006-01-02"
)

// Slot is the half-open interval [Start, Start+Granularity). The display marker
// is the one exception: it has zero width and is never bookable.
type Slot struct {
	Start       time.Time
	displayOnly bool
}

func (s Slot) End() time.Time {
	if s.displayOnly {
		return s.Start
	}
	return s.Start.Add(Granularity)
}

func (s Slot) DisplayOnly() bool {
	return s.displayOnly
}

// Grid is one calendar day in a fixed zone. Every computation happens in that
// zone, never in the caller's local zone.
type Grid struct {
	start time.Time
	loc   *time.Location
}

func NewGrid(day time.Time, loc *time.Location) Grid {
	if loc == nil {
		loc = time.UTC
	}
	d := day.In(loc)
	return Grid{
		start: time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc),
		loc:   loc,
	}
}

// ParseDay reads a YYYY-MM-DD date as a calendar day in loc.
func ParseDay(s string, loc *time.Location) (Grid, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return Grid{}, err
	}
	return NewGrid(d, loc), nil
}

func (g Grid) Start() time.Time         { return g.start }
func (g Grid) Location() *time.Location { return g.loc }
func (g Grid) Date() string             { return g.start.Format(DateLayout) }

// End is the next local midnight, so a day is 23 or 25 hours long when it
// crosses a daylight saving change.
func (g Grid) End() time.Time {
	return midnight(g.start.AddDate(0, 0, 1), g.loc)
}

func (g Grid) Contains(t time.Time) bool {
	return !t.Before(g.start) && t.Before(g.End())
}

// Slots returns a fresh slice each call, 00:00 up to 23:50 in 10 minute steps.
func (g Grid) Slots() []Slot {
	end := g.End()
	out := make([]Slot, 0, PerDay)
	for t := g.start; t.Before(end); t = t.Add(Granularity) {
		out = append(out, Slot{Start: t})
	}
	return out
}

// DisplayMarker is the 23:59 end-of-day tick some views draw after the last slot.
func (g Grid) DisplayMarker() Slot {
	return Slot{Start: g.End().Add(-time.Minute), displayOnly: true}
}

// Next returns the grid for the following calendar day.
func (g Grid) Next() Grid {
	return NewGrid(g.start.AddDate(0, 0, 1), g.loc)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// Aligned reports whether t falls exactly on a slot boundary in loc.
func Aligned(t time.Time, loc *time.Location) bool {
	return Floor(t, loc).Equal(t)
}

// Floor snaps t down to the slot boundary at or before it.
func Floor(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	m := midnight(t, loc)
	off := t.Sub(m)
	return m.Add(off - off%Granularity)
}

// Ceil snaps t up to the slot boundary at or after it.
func Ceil(t time.Time, loc *time.Location) time.Time {
	f := Floor(t, loc)
	if f.Equal(t) {
		return f
	}
	return f.Add(Granularity)
}

// Walk calls fn for every slot start in [start, end). Iteration stops early when
// fn returns false.
func Walk(start, end time.Time, loc *time.Location, fn func(time.Time) bool) {
	for t := Floor(start, loc); t.Before(end); t = t.Add(Granularity) {
		if !fn(t) {
			return
		}
	}
}
