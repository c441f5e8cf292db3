package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DayView is the read-only rendering model for the day agenda.
type DayView struct {
	Date       string
	Slots      []string
	Placements DayPlacement
	Now        *NowMark
	IsLoading  bool
	Err        string
}

// WeekView is the read-only rendering model for the week agenda.
type WeekView struct {
	Anchor    string
	Days      []string
	Slots     []string
	Matrix    WeekMatrix
	IsLoading bool
	Err       string
}

// Session is the explicit per-view-session state bag: working-hours
// template, derived grid, current filter, view models, epoch guard and
// mutation lock set. Every engine component receives it explicitly; there is
// no package-level mutable state.
type Session struct {
	mu     sync.Mutex
	cfg    ScheduleConfig
	grid   []string
	filter FilterState
	active ViewKey
	day    DayView
	week   WeekView
	guard  EpochGuard
	locks  MutationLock
}

// NewSession opens a session anchored on the given date with the fallback
// working-hours template. The real template arrives later via SetConfig.
func NewSession(anchor time.Time) *Session {
	s := &Session{active: ViewDay}
	s.setConfigLocked(DefaultScheduleConfig())
	s.day.Date = anchor.Format(dateLayout)
	s.week.Anchor = s.day.Date
	s.week.Days = WeekDays(anchor)
	return s
}

func (s *Session) setConfigLocked(cfg ScheduleConfig) {
	s.cfg = cfg.OrDefault()
	s.grid = BuildGrid(s.cfg)
}

// SetConfig installs the clinic working-hours template and rebuilds the slot
// grid. Invalid templates fall back to the default.
func (s *Session) SetConfig(cfg ScheduleConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setConfigLocked(cfg)
}

// Config returns the active working-hours template.
func (s *Session) Config() ScheduleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetFilter replaces the filter state. Callers trigger the debounced reload
// separately, see Orchestrator.OnFilterChange.
func (s *Session) SetFilter(f FilterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Filter returns the current filter state.
func (s *Session) Filter() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetActiveView records which view the user is on; mutations reload it.
func (s *Session) SetActiveView(view ViewKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = view
}

// ActiveView returns the view mutations should reload.
func (s *Session) ActiveView() ViewKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetDate moves the day view to date.
func (s *Session) SetDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day.Date = date
}

// SetWeekAnchor moves the week view to the week containing anchor.
func (s *Session) SetWeekAnchor(anchor time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.week.Anchor = anchor.Format(dateLayout)
	s.week.Days = WeekDays(anchor)
}

// Day returns a snapshot of the day view model.
func (s *Session) Day() DayView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Week returns a snapshot of the week view model.
func (s *Session) Week() WeekView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.week
}

// setUpdating toggles the optimistic busy marker on every placed copy of id.
func (s *Session) setUpdating(id uuid.UUID, updating bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot, appts := range s.day.Placements {
		for i := range appts {
			if appts[i].ID == id {
				appts[i].Updating = updating
			}
		}
		s.day.Placements[slot] = appts
	}
	for _, byDay := range s.week.Matrix {
		for slot, appts := range byDay {
			for i := range appts {
				if appts[i].ID == id {
					appts[i].Updating = updating
				}
			}
			byDay[slot] = appts
		}
	}
}
