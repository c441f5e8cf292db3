package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	cfg       ScheduleConfig
	cfgErr    error
	fetchDay  func(call int, date string, f FilterState) ([]Appointment, error)
	dayCalls  int
	rangeErr  error
	rangeData []Appointment
}

func (s *fakeSource) FetchScheduleConfig(ctx context.Context) (ScheduleConfig, error) {
	if s.cfgErr != nil {
		return ScheduleConfig{}, s.cfgErr
	}
	return s.cfg, nil
}

func (s *fakeSource) FetchDay(ctx context.Context, date string, f FilterState) ([]Appointment, error) {
	s.mu.Lock()
	s.dayCalls++
	call := s.dayCalls
	fn := s.fetchDay
	s.mu.Unlock()
	if fn != nil {
		return fn(call, date, f)
	}
	return nil, nil
}

func (s *fakeSource) FetchRange(ctx context.Context, from, to string, f FilterState) ([]Appointment, error) {
	return s.rangeData, s.rangeErr
}

func (s *fakeSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dayCalls
}

type fakeBackend struct {
	mu           sync.Mutex
	statusCalls  int
	statusErr    error
	statusGate   chan struct{}
	cancelCalls  int
	createCalls  int
	updateCalls  int
	unblockCalls int
}

func (b *fakeBackend) Create(ctx context.Context, d Draft) (*Appointment, error) {
	b.mu.Lock()
	b.createCalls++
	b.mu.Unlock()
	return &Appointment{ID: uuid.New(), Date: d.Date, StartTime: d.StartTime, Status: StatusScheduled}, nil
}

func (b *fakeBackend) Update(ctx context.Context, id uuid.UUID, d Draft) (*Appointment, error) {
	b.mu.Lock()
	b.updateCalls++
	b.mu.Unlock()
	return &Appointment{ID: id, Date: d.Date, StartTime: d.StartTime, Status: StatusScheduled}, nil
}

func (b *fakeBackend) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	b.mu.Lock()
	b.statusCalls++
	gate := b.statusGate
	err := b.statusErr
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (b *fakeBackend) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	b.mu.Lock()
	b.cancelCalls++
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) Block(ctx context.Context, d Draft) (*Appointment, error) {
	return &Appointment{ID: uuid.New(), Date: d.Date, StartTime: d.StartTime, IsBlock: true}, nil
}

func (b *fakeBackend) Unblock(ctx context.Context, id uuid.UUID, reason string) error {
	b.mu.Lock()
	b.unblockCalls++
	b.mu.Unlock()
	return nil
}

type fakeAuthority struct {
	mu   sync.Mutex
	last *ConflictRequest
	err  error
}

func (a *fakeAuthority) CheckConflict(ctx context.Context, req ConflictRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = &req
	return a.err
}

func newTestOrchestrator(src *fakeSource, backend *fakeBackend, authority *fakeAuthority) *Orchestrator {
	session := NewSession(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	return NewOrchestrator(session, src, backend, authority, zerolog.Nop())
}

func TestStaleReloadIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	old := testAppt("Antiga", "2026-03-10", "08:00", StatusScheduled)
	fresh := testAppt("Nova", "2026-03-10", "09:00", StatusScheduled)

	src := &fakeSource{
		cfg: DefaultScheduleConfig(),
		fetchDay: func(call int, date string, f FilterState) ([]Appointment, error) {
			if call == 1 {
				close(started)
				<-release
				return []Appointment{old}, nil
			}
			return []Appointment{fresh}, nil
		},
	}
	o := newTestOrchestrator(src, &fakeBackend{}, &fakeAuthority{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, o.Reload(context.Background(), ViewDay))
	}()

	<-started
	require.NoError(t, o.Reload(context.Background(), ViewDay))

	// Let the first, superseded fetch complete after the second.
	close(release)
	wg.Wait()

	day := o.Session().Day()
	assert.False(t, day.IsLoading)
	assert.Empty(t, day.Err)
	require.Len(t, day.Placements["09:00"], 1)
	assert.Equal(t, "Nova", day.Placements["09:00"][0].PatientName)
	assert.Empty(t, day.Placements["08:00"], "stale data must not be committed")
}

func TestStaleFetchFailureIsSwallowed(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	src := &fakeSource{
		cfg: DefaultScheduleConfig(),
		fetchDay: func(call int, date string, f FilterState) ([]Appointment, error) {
			if call == 1 {
				close(started)
				<-release
				return nil, errors.New("backend exploded")
			}
			return nil, nil
		},
	}
	o := newTestOrchestrator(src, &fakeBackend{}, &fakeAuthority{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Stale failures report nil: no state transition, no error surfaced.
		assert.NoError(t, o.Reload(context.Background(), ViewDay))
	}()

	<-started
	require.NoError(t, o.Reload(context.Background(), ViewDay))
	close(release)
	wg.Wait()

	day := o.Session().Day()
	assert.Empty(t, day.Err)
	assert.False(t, day.IsLoading)
}

func TestCurrentFetchFailureSurfacesError(t *testing.T) {
	src := &fakeSource{
		cfg: DefaultScheduleConfig(),
		fetchDay: func(call int, date string, f FilterState) ([]Appointment, error) {
			return nil, errors.New("backend exploded")
		},
	}
	o := newTestOrchestrator(src, &fakeBackend{}, &fakeAuthority{})

	err := o.Reload(context.Background(), ViewDay)
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, ViewDay, ferr.View)

	day := o.Session().Day()
	assert.NotEmpty(t, day.Err)
	assert.False(t, day.IsLoading)
}

func TestMutationDedup(t *testing.T) {
	backend := &fakeBackend{statusGate: make(chan struct{})}
	src := &fakeSource{cfg: DefaultScheduleConfig()}
	o := newTestOrchestrator(src, backend, &fakeAuthority{})
	id := uuid.New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, o.ChangeStatus(context.Background(), id, "Confirmado", ""))
	}()

	// Wait for the first call to be in flight, then fire a duplicate.
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.statusCalls == 1
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, o.ChangeStatus(context.Background(), id, "Confirmado", ""))

	close(backend.statusGate)
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.statusCalls, "duplicate must not reach the backend")
}

func TestLockReleasedAfterFailure(t *testing.T) {
	backend := &fakeBackend{statusErr: errors.New("remote rejected")}
	src := &fakeSource{cfg: DefaultScheduleConfig()}
	o := newTestOrchestrator(src, backend, &fakeAuthority{})
	id := uuid.New()

	err := o.ChangeStatus(context.Background(), id, "Confirmado", "")
	var merr *MutationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, MutationStatus, merr.Kind)

	// The failed call must not leave the id locked.
	backend.mu.Lock()
	backend.statusErr = nil
	backend.mu.Unlock()
	assert.NoError(t, o.ChangeStatus(context.Background(), id, "Confirmado", ""))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 2, backend.statusCalls)
}

func TestSuccessfulMutationReloads(t *testing.T) {
	backend := &fakeBackend{}
	src := &fakeSource{cfg: DefaultScheduleConfig()}
	o := newTestOrchestrator(src, backend, &fakeAuthority{})

	require.NoError(t, o.ChangeStatus(context.Background(), uuid.New(), "Confirmado", ""))
	assert.Equal(t, 1, src.calls(), "mutation effects must be re-fetched")
}

func TestCancelFromStatusSelectorRoutesToCancel(t *testing.T) {
	backend := &fakeBackend{}
	src := &fakeSource{cfg: DefaultScheduleConfig()}
	o := newTestOrchestrator(src, backend, &fakeAuthority{})
	id := uuid.New()

	require.NoError(t, o.ChangeStatus(context.Background(), id, "Cancelado", "paciente desmarcou"))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.cancelCalls)
	assert.Zero(t, backend.statusCalls, "cancel must not go through the generic status update")
}

func TestCancelRequiresReason(t *testing.T) {
	o := newTestOrchestrator(&fakeSource{cfg: DefaultScheduleConfig()}, &fakeBackend{}, &fakeAuthority{})
	err := o.ChangeStatus(context.Background(), uuid.New(), "Cancelado", "")
	assert.ErrorIs(t, err, ErrMissingCancelReason)
}

func TestUnknownStatusLabelRejected(t *testing.T) {
	o := newTestOrchestrator(&fakeSource{cfg: DefaultScheduleConfig()}, &fakeBackend{}, &fakeAuthority{})
	err := o.ChangeStatus(context.Background(), uuid.New(), "Inexistente", "")
	assert.ErrorIs(t, err, ErrUnknownStatusLabel)
}

func TestSubmitBlockedByConflict(t *testing.T) {
	backend := &fakeBackend{}
	authority := &fakeAuthority{err: &ConflictError{Code: "slot_taken", Message: "horário já ocupado"}}
	o := newTestOrchestrator(&fakeSource{cfg: DefaultScheduleConfig()}, backend, authority)

	_, err := o.Submit(context.Background(), Draft{Date: "2026-03-10", StartTime: "10:00", DurationMin: 30})

	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "slot_taken", cerr.Code)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Zero(t, backend.createCalls, "conflict must block persistence")
	assert.Zero(t, backend.updateCalls)
}

func TestSubmitEditCarriesSelfExclusion(t *testing.T) {
	backend := &fakeBackend{}
	authority := &fakeAuthority{}
	o := newTestOrchestrator(&fakeSource{cfg: DefaultScheduleConfig()}, backend, authority)

	id := uuid.New()
	_, err := o.Submit(context.Background(), Draft{
		ID:        &id,
		Date:      "2026-03-10",
		StartTime: "10:00",
	})
	require.NoError(t, err)

	authority.mu.Lock()
	defer authority.mu.Unlock()
	require.NotNil(t, authority.last)
	require.NotNil(t, authority.last.IgnoreID)
	assert.Equal(t, id, *authority.last.IgnoreID)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 1, backend.updateCalls)
}

func TestSubmitCreatePersistsAndReloads(t *testing.T) {
	backend := &fakeBackend{}
	src := &fakeSource{cfg: DefaultScheduleConfig()}
	o := newTestOrchestrator(src, backend, &fakeAuthority{})

	appt, err := o.Submit(context.Background(), Draft{
		Date:          "2026-03-10",
		StartTime:     "10:00",
		DurationMin:   30,
		AllowOverbook: true,
	})
	require.NoError(t, err)
	require.NotNil(t, appt)

	backend.mu.Lock()
	createCalls := backend.createCalls
	backend.mu.Unlock()
	assert.Equal(t, 1, createCalls)
	assert.Equal(t, 1, src.calls())
}

func TestSubmitBlockForcesOverbookOff(t *testing.T) {
	authority := &fakeAuthority{}
	o := newTestOrchestrator(&fakeSource{cfg: DefaultScheduleConfig()}, &fakeBackend{}, authority)

	_, err := o.Submit(context.Background(), Draft{
		Date:          "2026-03-10",
		StartTime:     "12:00",
		IsBlock:       true,
		AllowOverbook: true,
	})
	require.NoError(t, err)

	authority.mu.Lock()
	defer authority.mu.Unlock()
	require.NotNil(t, authority.last)
	assert.False(t, authority.last.AllowOverbook)
}

func TestLoadConfigFallsBackOnError(t *testing.T) {
	src := &fakeSource{cfgErr: errors.New("settings table missing")}
	o := newTestOrchestrator(src, &fakeBackend{}, &fakeAuthority{})

	o.LoadConfig(context.Background())
	assert.Equal(t, DefaultScheduleConfig(), o.Session().Config())
}

func TestFilterChangeDebouncesReload(t *testing.T) {
	src := &fakeSource{cfg: DefaultScheduleConfig()}
	o := newTestOrchestrator(src, &fakeBackend{}, &fakeAuthority{})
	o.SetDebounceWindow(20 * time.Millisecond)

	o.OnFilterChange(FilterState{NameTerm: "j"})
	o.OnFilterChange(FilterState{NameTerm: "jo"})
	o.OnFilterChange(FilterState{NameTerm: "joa"})

	require.Eventually(t, func() bool {
		return src.calls() == 1
	}, time.Second, 5*time.Millisecond)

	// Quiet period: no further reloads fire.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, src.calls())
	assert.Equal(t, FilterState{NameTerm: "joa"}, o.Session().Filter())
}

func TestNowMarkerOnlyOnToday(t *testing.T) {
	src := &fakeSource{cfg: DefaultScheduleConfig()}
	o := newTestOrchestrator(src, &fakeBackend{}, &fakeAuthority{})
	o.SetClock(func() time.Time { return time.Date(2026, 3, 10, 10, 5, 0, 0, time.UTC) })

	require.NoError(t, o.Reload(context.Background(), ViewDay))
	day := o.Session().Day()
	require.NotNil(t, day.Now)
	assert.Equal(t, "10:00", day.Now.Slot)

	require.NoError(t, o.GoToDate(context.Background(), "2026-03-11"))
	assert.Nil(t, o.Session().Day().Now)
}

func TestWeekReload(t *testing.T) {
	src := &fakeSource{
		cfg: DefaultScheduleConfig(),
		rangeData: []Appointment{
			testAppt("João", "2026-03-09", "08:30", StatusScheduled),
		},
	}
	o := newTestOrchestrator(src, &fakeBackend{}, &fakeAuthority{})

	require.NoError(t, o.GoToWeek(context.Background(), "2026-03-10"))
	week := o.Session().Week()
	assert.Equal(t, ViewWeek, o.Session().ActiveView())
	require.Len(t, week.Days, 7)
	assert.Len(t, week.Matrix["2026-03-09"]["08:30"], 1)
}
