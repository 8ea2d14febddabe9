package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := ResolveLocation(name)
	require.NoError(t, err)
	return loc
}

func TestLocalDayKey_UsesTargetZone(t *testing.T) {
	// 2026-02-10T20:00Z is already Feb 11 in Manila and still Feb 10 in New York.
	instant := time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, DayKey("2026-02-11"), LocalDayKey(instant, mustLocation(t, "Asia/Manila")))
	assert.Equal(t, DayKey("2026-02-10"), LocalDayKey(instant, mustLocation(t, "America/New_York")))
	assert.Equal(t, DayKey("2026-02-10"), LocalDayKey(instant, nil))
}

func TestParseDayKey(t *testing.T) {
	day, ok := ParseDayKey("2026-02-11")
	assert.True(t, ok)
	assert.Equal(t, DayKey("2026-02-11"), day)

	for _, bad := range []string{"traceId", "2026-2-11", "2026-02-30", "", "2026-02-11T00:00:00Z"} {
		_, ok := ParseDayKey(bad)
		assert.False(t, ok, bad)
	}
}

func TestResolveLocation(t *testing.T) {
	loc, err := ResolveLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = ResolveLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestMonthWindow_AsiaManila(t *testing.T) {
	w := MonthWindow(2026, time.February, mustLocation(t, "Asia/Manila"))

	assert.Equal(t, int64(1769875200000), w.StartMs(), "2026-02-01T00:00+08:00")
	assert.Equal(t, int64(1772208000000), w.EndMs(), "2026-02-28T00:00+08:00")
	assert.Equal(t, DayKey("2026-02-01"), w.FirstDay)
	assert.Equal(t, DayKey("2026-02-28"), w.LastDay)
}

func TestMonthWindow_LeapYear(t *testing.T) {
	w := MonthWindow(2028, time.February, time.UTC)
	assert.Equal(t, DayKey("2028-02-29"), w.LastDay)
}

func TestMonthGrid_LeadingBlanksAndDays(t *testing.T) {
	// Feb 1 2026 is a Sunday, so there is no padding.
	cells := MonthGrid(2026, time.February, mustLocation(t, "Asia/Manila"))
	require.Len(t, cells, 28)
	assert.False(t, cells[0].Blank)
	assert.Equal(t, DayKey("2026-02-01"), cells[0].Day)
	assert.Equal(t, DayKey("2026-02-28"), cells[27].Day)

	// Oct 1 2026 is a Thursday.
	cells = MonthGrid(2026, time.October, time.UTC)
	require.Len(t, cells, 4+31)
	for i := 0; i < 4; i++ {
		assert.True(t, cells[i].Blank)
		assert.Empty(t, cells[i].Day)
	}
	assert.Equal(t, DayKey("2026-10-01"), cells[4].Day)
}

func TestMonthGrid_KeysMatchLocalDayKey(t *testing.T) {
	for _, zone := range []string{"Asia/Manila", "America/Los_Angeles", "Pacific/Kiritimati", "UTC"} {
		loc := mustLocation(t, zone)
		for _, cell := range MonthGrid(2026, time.March, loc) {
			if cell.Blank {
				continue
			}
			assert.Equal(t, LocalDayKey(cell.Date, loc), cell.Day, zone)
		}
	}
}

func TestMarkAvailability_ManilaEndToEnd(t *testing.T) {
	loc := mustLocation(t, "Asia/Manila")
	slots, err := NormalizeSlots([]byte(`{"2026-02-11":{"slots":["2026-02-11T11:00:00+08:00"]},"traceId":"t-1"}`))
	require.NoError(t, err)

	cells := MarkAvailability(MonthGrid(2026, time.February, loc), slots)

	var available []DayKey
	for _, cell := range cells {
		if cell.Available {
			available = append(available, cell.Day)
		}
	}
	assert.Equal(t, []DayKey{"2026-02-11"}, available)
}

func TestMarkAvailability_DoesNotMutateInput(t *testing.T) {
	cells := MonthGrid(2026, time.February, time.UTC)
	_ = MarkAvailability(cells, SlotMap{"2026-02-02": {"2026-02-02T09:00:00+00:00"}})
	for _, cell := range cells {
		assert.False(t, cell.Available)
	}
}
