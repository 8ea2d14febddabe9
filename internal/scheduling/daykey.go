// Package scheduling holds the timezone arithmetic behind the booking
// calendar: day keys, month windows, slot maps and appointment end times.
package scheduling

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA names must resolve on slim images and Lambda.
)

const dayKeyLayout = "2006-01-02"

// DayKey is a YYYY-MM-DD calendar day in a resolved timezone.
type DayKey string

// LocalDayKey formats the calendar day containing t as seen from loc. It is
// the only place a day key is derived from an instant; month windows, grid
// cells and slot map lookups all go through it.
func LocalDayKey(t time.Time, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.UTC
	}
	return DayKey(t.In(loc).Format(dayKeyLayout))
}

// ParseDayKey validates s as a YYYY-MM-DD day key.
func ParseDayKey(s string) (DayKey, bool) {
	if len(s) != len(dayKeyLayout) {
		return "", false
	}
	if _, err := time.Parse(dayKeyLayout, s); err != nil {
		return "", false
	}
	return DayKey(s), true
}

// ResolveLocation loads an IANA zone. An empty name resolves to UTC.
func ResolveLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("scheduling: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Window is the request range for one month view.
type Window struct {
	Start    time.Time
	End      time.Time
	FirstDay DayKey
	LastDay  DayKey
}

// StartMs returns the window start as epoch milliseconds.
func (w Window) StartMs() int64 { return w.Start.UnixMilli() }

// EndMs returns the window end as epoch milliseconds.
func (w Window) EndMs() int64 { return w.End.UnixMilli() }

// MonthWindow spans local midnight of the first day through local midnight of
// the last day of the month in loc.
func MonthWindow(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	return Window{
		Start:    start,
		End:      end,
		FirstDay: LocalDayKey(start, loc),
		LastDay:  LocalDayKey(end, loc),
	}
}

// GridCell is one square of the month calendar. Leading cells that pad the
// first week are Blank.
type GridCell struct {
	Blank     bool      `json:"blank,omitempty"`
	Day       DayKey    `json:"day,omitempty"`
	Date      time.Time `json:"-"`
	Available bool      `json:"available"`
}

// MonthGrid lays out a Sunday-first month grid for loc.
func MonthGrid(year int, month time.Month, loc *time.Location) []GridCell {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	blanks := int(first.Weekday())

	cells := make([]GridCell, 0, blanks+days)
	for i := 0; i < blanks; i++ {
		cells = append(cells, GridCell{Blank: true})
	}
	for d := 1; d <= days; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, loc)
		cells = append(cells, GridCell{Day: LocalDayKey(date, loc), Date: date})
	}
	return cells
}

// MarkAvailability returns a copy of cells with Available set from slots.
func MarkAvailability(cells []GridCell, slots SlotMap) []GridCell {
	out := make([]GridCell, len(cells))
	for i, cell := range cells {
		if !cell.Blank {
			cell.Available = slots.HasSlots(cell.Day)
		}
		out[i] = cell
	}
	return out
}
