package schedule

import "time"

const dateLayout = "2006-01-02"

// BuildGrid derives the ordered slot labels for one agenda day. Labels are
// strictly ascending "HH:MM" values starting at the configured day start and
// spaced by the configured step; the last label never exceeds the day end.
// When the configured end precedes the start the grid is empty rather than
// running backwards.
func BuildGrid(cfg ScheduleConfig) []string {
	cfg = cfg.OrDefault()
	if cfg.DayEndMin < cfg.DayStartMin {
		return nil
	}

	slots := make([]string, 0, (cfg.DayEndMin-cfg.DayStartMin)/cfg.StepMin+1)
	for t := cfg.DayStartMin; t <= cfg.DayEndMin; t += cfg.StepMin {
		slots = append(slots, FormatClock(t))
	}
	return slots
}

// NowMark points at the slot covering the current time, used to render the
// "now" line on the agenda.
type NowMark struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

// NowSlot locates the grid slot covering now. It returns nil when now falls
// outside the configured working window, so days without a visible marker
// render nothing instead of pinning the marker to an edge slot.
func NowSlot(cfg ScheduleConfig, now time.Time) *NowMark {
	cfg = cfg.OrDefault()
	grid := BuildGrid(cfg)
	if len(grid) == 0 {
		return nil
	}

	nowMin := now.Hour()*60 + now.Minute()
	if nowMin < cfg.DayStartMin || nowMin > cfg.DayEndMin {
		return nil
	}

	idx := (nowMin - cfg.DayStartMin) / cfg.StepMin
	if idx < 0 {
		idx = 0
	}
	if idx > len(grid)-1 {
		idx = len(grid) - 1
	}

	return &NowMark{
		Date: now.Format(dateLayout),
		Slot: grid[idx],
	}
}

// slotIndex maps a start time in minutes to its grid bucket, clamped into
// the grid bounds so early or late appointments stay visible on the edges.
func slotIndex(cfg ScheduleConfig, grid []string, startMin int) int {
	idx := (startMin - cfg.DayStartMin) / cfg.StepMin
	if idx < 0 {
		return 0
	}
	if idx > len(grid)-1 {
		return len(grid) - 1
	}
	return idx
}
