package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/agenda/internal/schedule"
)

type stubSource struct {
	appts []schedule.Appointment
}

func (s *stubSource) FetchScheduleConfig(ctx context.Context) (schedule.ScheduleConfig, error) {
	return schedule.DefaultScheduleConfig(), nil
}

func (s *stubSource) FetchDay(ctx context.Context, date string, f schedule.FilterState) ([]schedule.Appointment, error) {
	return s.appts, nil
}

func (s *stubSource) FetchRange(ctx context.Context, from, to string, f schedule.FilterState) ([]schedule.Appointment, error) {
	return s.appts, nil
}

type stubBackend struct {
	created int
}

func (b *stubBackend) Create(ctx context.Context, d schedule.Draft) (*schedule.Appointment, error) {
	b.created++
	return &schedule.Appointment{ID: uuid.New(), Date: d.Date, StartTime: d.StartTime, Status: schedule.StatusScheduled}, nil
}

func (b *stubBackend) Update(ctx context.Context, id uuid.UUID, d schedule.Draft) (*schedule.Appointment, error) {
	return &schedule.Appointment{ID: id, Date: d.Date, StartTime: d.StartTime, Status: schedule.StatusScheduled}, nil
}

func (b *stubBackend) UpdateStatus(ctx context.Context, id uuid.UUID, status schedule.Status) error {
	return nil
}

func (b *stubBackend) Cancel(ctx context.Context, id uuid.UUID, reason string) error { return nil }

func (b *stubBackend) Block(ctx context.Context, d schedule.Draft) (*schedule.Appointment, error) {
	return &schedule.Appointment{ID: uuid.New(), Date: d.Date, StartTime: d.StartTime, IsBlock: true}, nil
}

func (b *stubBackend) Unblock(ctx context.Context, id uuid.UUID, reason string) error { return nil }

type stubAuthority struct {
	err error
}

func (a *stubAuthority) CheckConflict(ctx context.Context, req schedule.ConflictRequest) error {
	return a.err
}

func newTestRouterParts(src *stubSource, backend *stubBackend, authority *stubAuthority) *SessionManager {
	factory := func(anchor time.Time) *schedule.Orchestrator {
		return schedule.NewOrchestrator(schedule.NewSession(anchor), src, backend, authority, zerolog.Nop())
	}
	return NewSessionManager(factory, nil)
}

func TestDayViewHandler(t *testing.T) {
	pid := uuid.New()
	src := &stubSource{appts: []schedule.Appointment{{
		ID:          uuid.New(),
		PatientID:   &pid,
		PatientName: "João da Silva",
		Date:        "2026-03-10",
		StartTime:   "08:30",
		DurationMin: 30,
		Status:      schedule.StatusScheduled,
	}}}
	sessions := newTestRouterParts(src, &stubBackend{}, &stubAuthority{})

	req := httptest.NewRequest(http.MethodGet, "/agenda/day?date=2026-03-10", nil)
	rec := httptest.NewRecorder()
	dayViewHandler(sessions)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DayViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-03-10", resp.Date)
	assert.Len(t, resp.Slots, 41)
	require.Len(t, resp.Placements["08:30"], 1)
	assert.Equal(t, "Agendado", resp.Placements["08:30"][0].StatusLabel)
}

func TestSubmitHandlerConflict(t *testing.T) {
	backend := &stubBackend{}
	sessions := newTestRouterParts(&stubSource{}, backend, &stubAuthority{
		err: &schedule.ConflictError{Code: "slot_taken", Message: "já existe um agendamento neste horário"},
	})

	body := `{"date":"2026-03-10","start_time":"09:00","duration_min":30}`
	req := httptest.NewRequest(http.MethodPost, "/agenda/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	submitHandler(sessions)(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slot_taken", resp.Error)
	assert.Zero(t, backend.created, "conflict must block persistence")
}

func TestSubmitHandlerCreate(t *testing.T) {
	backend := &stubBackend{}
	sessions := newTestRouterParts(&stubSource{}, backend, &stubAuthority{})

	body := `{"date":"2026-03-10","start_time":"09:00","duration_min":30,"allow_overbook":true}`
	req := httptest.NewRequest(http.MethodPost, "/agenda/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	submitHandler(sessions)(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, backend.created)
}

func TestStatusHandlerRejectsBadID(t *testing.T) {
	sessions := newTestRouterParts(&stubSource{}, &stubBackend{}, &stubAuthority{})

	req := httptest.NewRequest(http.MethodPost, "/agenda/appointments/not-a-uuid/status", strings.NewReader(`{"status":"Confirmado"}`))
	rec := httptest.NewRecorder()
	statusHandler(sessions)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionManagerReusesOrchestrator(t *testing.T) {
	sessions := newTestRouterParts(&stubSource{}, &stubBackend{}, &stubAuthority{})

	a := sessions.Get(context.Background(), "sess-1")
	b := sessions.Get(context.Background(), "sess-1")
	c := sessions.Get(context.Background(), "sess-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
