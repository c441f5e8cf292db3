package schedule

import "time"

// DayPlacement buckets appointments by slot label for the day view.
type DayPlacement map[string][]Appointment

// WeekMatrix buckets appointments by day, then by slot label.
type WeekMatrix map[string]map[string][]Appointment

// PlaceDay filters appointments and buckets them into the day grid. An
// appointment starting before the grid lands on the first slot, one starting
// after it lands on the last, so off-hours entries stay visible instead of
// silently disappearing.
func PlaceDay(cfg ScheduleConfig, grid []string, appts []Appointment, f FilterState) DayPlacement {
	cfg = cfg.OrDefault()
	placement := make(DayPlacement, len(grid))
	if len(grid) == 0 {
		return placement
	}

	for _, a := range appts {
		if !matchesFilter(a, f) {
			continue
		}
		startMin, err := ParseClock(a.StartTime)
		if err != nil {
			startMin = cfg.DayStartMin
		}
		slot := grid[slotIndex(cfg, grid, startMin)]
		placement[slot] = append(placement[slot], a)
	}
	return placement
}

// WeekDays lists the seven agenda dates of the week containing anchor,
// Sunday through Saturday.
func WeekDays(anchor time.Time) []string {
	start := anchor.AddDate(0, 0, -int(anchor.Weekday()))
	days := make([]string, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i).Format(dateLayout)
	}
	return days
}

// PlaceWeek filters appointments and buckets them into the day-by-slot
// matrix. Appointments dated outside the listed days are dropped.
func PlaceWeek(cfg ScheduleConfig, grid []string, days []string, appts []Appointment, f FilterState) WeekMatrix {
	cfg = cfg.OrDefault()
	matrix := make(WeekMatrix, len(days))
	for _, d := range days {
		matrix[d] = make(map[string][]Appointment)
	}
	if len(grid) == 0 {
		return matrix
	}

	for _, a := range appts {
		byDay, ok := matrix[a.Date]
		if !ok {
			continue
		}
		if !matchesFilter(a, f) {
			continue
		}
		startMin, err := ParseClock(a.StartTime)
		if err != nil {
			startMin = cfg.DayStartMin
		}
		slot := grid[slotIndex(cfg, grid, startMin)]
		byDay[slot] = append(byDay[slot], a)
	}
	return matrix
}
