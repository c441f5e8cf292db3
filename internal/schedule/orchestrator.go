package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AppointmentSource is the fetch collaborator backing reloads.
type AppointmentSource interface {
	FetchScheduleConfig(ctx context.Context) (ScheduleConfig, error)
	FetchDay(ctx context.Context, date string, f FilterState) ([]Appointment, error)
	FetchRange(ctx context.Context, from, to string, f FilterState) ([]Appointment, error)
}

// MutationBackend is the write collaborator. All writes go through the
// remote authority; the engine never persists state itself.
type MutationBackend interface {
	Create(ctx context.Context, d Draft) (*Appointment, error)
	Update(ctx context.Context, id uuid.UUID, d Draft) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Cancel(ctx context.Context, id uuid.UUID, reason string) error
	Block(ctx context.Context, d Draft) (*Appointment, error)
	Unblock(ctx context.Context, id uuid.UUID, reason string) error
}

// Orchestrator coordinates the agenda: it reloads views under epoch
// guarding, deduplicates per-resource mutations, and runs the
// validate-then-persist-then-reload submission flow.
type Orchestrator struct {
	session   *Session
	source    AppointmentSource
	backend   MutationBackend
	validator *ConflictValidator
	debounce  *Debouncer
	clock     func() time.Time
	log       zerolog.Logger
}

func NewOrchestrator(session *Session, source AppointmentSource, backend MutationBackend, authority ConflictAuthority, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		session:   session,
		source:    source,
		backend:   backend,
		validator: NewConflictValidator(authority),
		clock:     time.Now,
		log:       log,
	}
	o.debounce = NewDebouncer(DefaultDebounceWindow, o.reloadActive)
	return o
}

// SetDebounceWindow replaces the filter-change quiet window.
func (o *Orchestrator) SetDebounceWindow(window time.Duration) {
	o.debounce.Stop()
	o.debounce = NewDebouncer(window, o.reloadActive)
}

// SetClock injects the time source.
func (o *Orchestrator) SetClock(clock func() time.Time) {
	o.clock = clock
}

// Session exposes the session for view-model reads.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// LoadConfig fetches the clinic working-hours template. A failed fetch is
// non-fatal: the session keeps the default template and the failure is only
// logged.
func (o *Orchestrator) LoadConfig(ctx context.Context) {
	cfg, err := o.source.FetchScheduleConfig(ctx)
	if err != nil {
		lerr := &ConfigLoadError{Cause: err}
		o.log.Warn().Err(lerr).Msg("schedule config unavailable, using defaults")
		o.session.SetConfig(DefaultScheduleConfig())
		return
	}
	if !cfg.Valid() {
		o.log.Warn().
			Int("start_min", cfg.DayStartMin).
			Int("end_min", cfg.DayEndMin).
			Int("step_min", cfg.StepMin).
			Msg("invalid schedule config, using defaults")
	}
	o.session.SetConfig(cfg)
}

// Reload bumps the view's epoch and fetches fresh appointments. Responses
// arriving under a superseded epoch are discarded without touching the view,
// so overlapping reloads keep last-request-wins regardless of the order the
// fetches complete in. While loading, the previous data stays on screen;
// only a previous error is cleared.
func (o *Orchestrator) Reload(ctx context.Context, view ViewKey) error {
	s := o.session

	s.mu.Lock()
	epoch := s.guard.Bump(view)
	cfg := s.cfg
	grid := s.grid
	filter := s.filter
	var (
		date string
		days []string
	)
	if view == ViewWeek {
		s.week.IsLoading = true
		s.week.Err = ""
		days = s.week.Days
	} else {
		s.day.IsLoading = true
		s.day.Err = ""
		date = s.day.Date
	}
	s.mu.Unlock()

	var (
		appts []Appointment
		err   error
	)
	if view == ViewWeek {
		appts, err = o.source.FetchRange(ctx, days[0], days[len(days)-1], filter)
	} else {
		appts, err = o.source.FetchDay(ctx, date, filter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guard.IsCurrent(epoch) {
		o.log.Debug().Str("view", string(view)).Msg("discarding stale agenda response")
		return nil
	}

	if err != nil {
		ferr := &FetchError{View: view, Cause: err}
		if view == ViewWeek {
			s.week.IsLoading = false
			s.week.Err = ferr.Error()
		} else {
			s.day.IsLoading = false
			s.day.Err = ferr.Error()
		}
		return ferr
	}

	if view == ViewWeek {
		s.week.Slots = grid
		s.week.Matrix = PlaceWeek(cfg, grid, days, appts, filter)
		s.week.IsLoading = false
		s.week.Err = ""
	} else {
		s.day.Slots = grid
		s.day.Placements = PlaceDay(cfg, grid, appts, filter)
		s.day.Now = nil
		if mark := NowSlot(cfg, o.clock()); mark != nil && mark.Date == s.day.Date {
			s.day.Now = mark
		}
		s.day.IsLoading = false
		s.day.Err = ""
	}
	return nil
}

// GoToDate navigates the day view and reloads it.
func (o *Orchestrator) GoToDate(ctx context.Context, date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("parse agenda date: %w", err)
	}
	o.session.SetDate(date)
	o.session.SetActiveView(ViewDay)
	return o.Reload(ctx, ViewDay)
}

// GoToWeek navigates the week view to the week containing anchor and
// reloads it.
func (o *Orchestrator) GoToWeek(ctx context.Context, anchor string) error {
	t, err := time.Parse(dateLayout, anchor)
	if err != nil {
		return fmt.Errorf("parse agenda week anchor: %w", err)
	}
	o.session.SetWeekAnchor(t)
	o.session.SetActiveView(ViewWeek)
	return o.Reload(ctx, ViewWeek)
}

// OnFilterChange installs the new filter and schedules a debounced reload of
// the active view. Rapid successive changes collapse into one reload.
func (o *Orchestrator) OnFilterChange(f FilterState) {
	o.session.SetFilter(f)
	o.debounce.Trigger()
}

func (o *Orchestrator) reloadActive() {
	view := o.session.ActiveView()
	if err := o.Reload(context.Background(), view); err != nil {
		o.log.Error().Err(err).Str("view", string(view)).Msg("debounced reload failed")
	}
}

// Mutate runs one state-changing operation on a resource under the mutation
// lock. A duplicate call while the first is in flight is a silent no-op. The
// lock is released on every path; success always reloads the active view
// since mutation effects are re-fetched, never assumed from optimistic
// state.
func (o *Orchestrator) Mutate(ctx context.Context, kind MutationKind, id uuid.UUID, op func(context.Context) error) error {
	s := o.session
	if !s.locks.TryAcquire(kind, id) {
		o.log.Debug().
			Str("kind", string(kind)).
			Str("id", id.String()).
			Msg("dropping duplicate mutation")
		return nil
	}

	s.setUpdating(id, true)
	err := func() error {
		defer s.locks.Release(kind, id)
		return op(ctx)
	}()
	if err != nil {
		s.setUpdating(id, false)
		return &MutationError{Kind: kind, ID: id, Cause: err}
	}

	s.setUpdating(id, false)
	return o.Reload(ctx, s.ActiveView())
}

// ChangeStatus applies a status chosen from the agenda's status selector.
// The label is localized display text; cancellation picked from the selector
// routes to the dedicated cancel flow because it carries a reason and
// different server-side side effects.
func (o *Orchestrator) ChangeStatus(ctx context.Context, id uuid.UUID, label, reason string) error {
	status, ok := StatusFromLabel(label)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatusLabel, label)
	}
	if status == StatusCanceled {
		return o.Cancel(ctx, id, reason)
	}
	return o.Mutate(ctx, MutationStatus, id, func(ctx context.Context) error {
		return o.backend.UpdateStatus(ctx, id, status)
	})
}

// Cancel cancels an appointment with a mandatory reason.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return ErrMissingCancelReason
	}
	return o.Mutate(ctx, MutationStatus, id, func(ctx context.Context) error {
		return o.backend.Cancel(ctx, id, reason)
	})
}

// Unblock removes a clinician time block.
func (o *Orchestrator) Unblock(ctx context.Context, id uuid.UUID, reason string) error {
	return o.Mutate(ctx, MutationUnblock, id, func(ctx context.Context) error {
		return o.backend.Unblock(ctx, id, reason)
	})
}

// Submit runs the create/edit flow: validate against the conflict authority
// first, persist only when validation passes, then reload. A *ConflictError
// return means nothing was written.
func (o *Orchestrator) Submit(ctx context.Context, d Draft) (*Appointment, error) {
	if d.IsBlock {
		// A block can never fit in over existing bookings.
		d.AllowOverbook = false
	}
	if err := o.validator.Validate(ctx, d); err != nil {
		return nil, err
	}

	var (
		appt *Appointment
		err  error
	)
	switch {
	case d.ID != nil:
		appt, err = o.backend.Update(ctx, *d.ID, d)
	case d.IsBlock:
		appt, err = o.backend.Block(ctx, d)
	default:
		appt, err = o.backend.Create(ctx, d)
	}
	if err != nil {
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	if rerr := o.Reload(ctx, o.session.ActiveView()); rerr != nil {
		o.log.Error().Err(rerr).Msg("reload after submit failed")
	}
	return appt, nil
}
