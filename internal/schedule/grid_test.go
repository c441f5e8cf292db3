package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGridDefaultWindow(t *testing.T) {
	grid := BuildGrid(ScheduleConfig{DayStartMin: 480, DayEndMin: 1080, StepMin: 15})

	require.Len(t, grid, 41)
	assert.Equal(t, "08:00", grid[0])
	assert.Equal(t, "18:00", grid[len(grid)-1])

	for i := 1; i < len(grid); i++ {
		prev, err := ParseClock(grid[i-1])
		require.NoError(t, err)
		cur, err := ParseClock(grid[i])
		require.NoError(t, err)
		assert.Equal(t, 15, cur-prev, "delta at %d", i)
	}
}

func TestBuildGridUnevenEnd(t *testing.T) {
	// End not on a step boundary: last slot stays below the end.
	grid := BuildGrid(ScheduleConfig{DayStartMin: 480, DayEndMin: 500, StepMin: 15})
	require.Equal(t, []string{"08:00", "08:15"}, grid)
}

func TestBuildGridEndBeforeStart(t *testing.T) {
	grid := BuildGrid(ScheduleConfig{DayStartMin: 600, DayEndMin: 480, StepMin: 15})
	assert.Empty(t, grid)
}

func TestBuildGridInvalidStepFallsBack(t *testing.T) {
	grid := BuildGrid(ScheduleConfig{DayStartMin: 480, DayEndMin: 1080, StepMin: 0})
	require.Len(t, grid, 41)
	assert.Equal(t, "08:00", grid[0])
}

func TestNowSlotInsideWindow(t *testing.T) {
	cfg := ScheduleConfig{DayStartMin: 480, DayEndMin: 1080, StepMin: 15}
	now := time.Date(2026, 3, 10, 9, 7, 0, 0, time.UTC)

	mark := NowSlot(cfg, now)
	require.NotNil(t, mark)
	assert.Equal(t, "2026-03-10", mark.Date)
	assert.Equal(t, "09:00", mark.Slot)
}

func TestNowSlotOutsideWindow(t *testing.T) {
	cfg := ScheduleConfig{DayStartMin: 480, DayEndMin: 1080, StepMin: 15}

	assert.Nil(t, NowSlot(cfg, time.Date(2026, 3, 10, 7, 59, 0, 0, time.UTC)))
	assert.Nil(t, NowSlot(cfg, time.Date(2026, 3, 10, 18, 1, 0, 0, time.UTC)))
}

func TestNowSlotAtBounds(t *testing.T) {
	cfg := ScheduleConfig{DayStartMin: 480, DayEndMin: 1080, StepMin: 15}

	mark := NowSlot(cfg, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NotNil(t, mark)
	assert.Equal(t, "08:00", mark.Slot)

	mark = NowSlot(cfg, time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC))
	require.NotNil(t, mark)
	assert.Equal(t, "18:00", mark.Slot)
}

func TestParseClock(t *testing.T) {
	min, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, min)

	for _, bad := range []string{"", "8h30", "25:00", "10:75", "10"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidClock, "input %q", bad)
	}
}
