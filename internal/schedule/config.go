// Package schedule implements the agenda scheduling engine: slot-grid
// derivation, filter classification, race-free reload guarding, per-resource
// mutation deduplication and conflict validation routing.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Hard-coded working-hours fallback, used whenever the clinic configuration
// is missing or invalid: 08:00 to 18:00 in 15-minute steps.
const (
	DefaultDayStartMin = 8 * 60
	DefaultDayEndMin   = 18 * 60
	DefaultStepMin     = 15
)

var ErrInvalidClock = errors.New("invalid clock value, expected HH:MM")

// ScheduleConfig is the clinic working-hours template the slot grid is
// derived from. All fields are minutes from midnight. It is loaded once per
// view session and treated as immutable afterwards.
type ScheduleConfig struct {
	DayStartMin int
	DayEndMin   int
	StepMin     int
}

// DefaultScheduleConfig returns the hard-coded fallback template.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		DayStartMin: DefaultDayStartMin,
		DayEndMin:   DefaultDayEndMin,
		StepMin:     DefaultStepMin,
	}
}

// Valid reports whether the template can produce a grid. A step of zero or
// less can never terminate the grid walk and is rejected outright.
func (c ScheduleConfig) Valid() bool {
	return c.StepMin > 0 && c.DayStartMin >= 0 && c.DayEndMin >= 0
}

// OrDefault returns c when valid, the hard-coded default otherwise.
func (c ScheduleConfig) OrDefault() ScheduleConfig {
	if c.Valid() {
		return c
	}
	return DefaultScheduleConfig()
}

// FormatClock renders minutes from midnight as a "HH:MM" label.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock parses a "HH:MM" label into minutes from midnight.
func ParseClock(v string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, v)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, v)
	}
	mins, err := strconv.Atoi(m)
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, v)
	}
	return hours*60 + mins, nil
}
