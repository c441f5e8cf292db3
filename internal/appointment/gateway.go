package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/agenda/internal/schedule"
)

const dateLayout = "2006-01-02"

// AgendaGateway adapts the repository to the scheduling engine's
// collaborator interfaces: fetch source, mutation backend and conflict
// authority. The overlap decision lives here and in SQL, never in the
// engine.
type AgendaGateway struct {
	repo Repository
}

func NewAgendaGateway(repo Repository) *AgendaGateway {
	return &AgendaGateway{repo: repo}
}

// FetchScheduleConfig loads the clinic working-hours template.
func (g *AgendaGateway) FetchScheduleConfig(ctx context.Context) (schedule.ScheduleConfig, error) {
	w, err := g.repo.GetScheduleWindow(ctx)
	if err != nil {
		return schedule.ScheduleConfig{}, fmt.Errorf("load schedule window: %w", err)
	}
	return schedule.ScheduleConfig{
		DayStartMin: w.DayStartMin,
		DayEndMin:   w.DayEndMin,
		StepMin:     w.StepMin,
	}, nil
}

// FetchDay lists the agenda entries of one day.
func (g *AgendaGateway) FetchDay(ctx context.Context, date string, _ schedule.FilterState) ([]schedule.Appointment, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse agenda date: %w", err)
	}
	rows, err := g.repo.ListByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	return toEngine(rows), nil
}

// FetchRange lists the agenda entries of an inclusive date range.
func (g *AgendaGateway) FetchRange(ctx context.Context, from, to string, _ schedule.FilterState) ([]schedule.Appointment, error) {
	fromDay, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("parse range start: %w", err)
	}
	toDay, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("parse range end: %w", err)
	}
	rows, err := g.repo.ListByRange(ctx, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	return toEngine(rows), nil
}

// Create persists a new booking draft.
func (g *AgendaGateway) Create(ctx context.Context, d schedule.Draft) (*schedule.Appointment, error) {
	row, err := fromDraft(d)
	if err != nil {
		return nil, err
	}
	if row.PatientID != nil {
		if _, err := g.repo.GetPatientByID(ctx, *row.PatientID); err != nil {
			return nil, err
		}
	}
	row.Status = string(schedule.StatusScheduled)

	created, err := g.repo.Create(ctx, *row)
	if err != nil {
		return nil, err
	}
	appt := toEngineOne(*created)
	return &appt, nil
}

// Update rewrites the slot coordinates and details of an existing entry.
func (g *AgendaGateway) Update(ctx context.Context, id uuid.UUID, d schedule.Draft) (*schedule.Appointment, error) {
	row, err := fromDraft(d)
	if err != nil {
		return nil, err
	}
	updated, err := g.repo.Update(ctx, id, *row)
	if err != nil {
		return nil, err
	}
	appt := toEngineOne(*updated)
	return &appt, nil
}

func (g *AgendaGateway) UpdateStatus(ctx context.Context, id uuid.UUID, status schedule.Status) error {
	return g.repo.UpdateStatus(ctx, id, string(status))
}

func (g *AgendaGateway) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	return g.repo.Cancel(ctx, id, reason)
}

// Block persists a clinician time block.
func (g *AgendaGateway) Block(ctx context.Context, d schedule.Draft) (*schedule.Appointment, error) {
	row, err := fromDraft(d)
	if err != nil {
		return nil, err
	}
	row.IsBlock = true
	row.PatientID = nil
	row.AllowOverbook = false
	row.Status = string(schedule.StatusScheduled)

	created, err := g.repo.Create(ctx, *row)
	if err != nil {
		return nil, err
	}
	appt := toEngineOne(*created)
	return &appt, nil
}

func (g *AgendaGateway) Unblock(ctx context.Context, id uuid.UUID, reason string) error {
	return g.repo.Unblock(ctx, id, reason)
}

// CheckConflict is the authoritative overlap decision. A block always
// occupies its interval; a booking conflict can be overridden by the fit-in
// flag.
func (g *AgendaGateway) CheckConflict(ctx context.Context, req schedule.ConflictRequest) error {
	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return fmt.Errorf("parse conflict date: %w", err)
	}
	startMin, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		return fmt.Errorf("parse conflict time: %w", err)
	}

	bookings, blocks, err := g.repo.CountOverlaps(ctx, day, startMin, startMin+req.DurationMin, req.IgnoreID)
	if err != nil {
		return err
	}

	if blocks > 0 {
		return &schedule.ConflictError{
			Code:    "slot_blocked",
			Message: "horário bloqueado pela clínica",
		}
	}
	if bookings > 0 && !req.AllowOverbook {
		return &schedule.ConflictError{
			Code:    "slot_taken",
			Message: "já existe um agendamento neste horário",
		}
	}
	return nil
}

// Mapping helpers

func toEngineOne(a Appointment) schedule.Appointment {
	name := ""
	if a.PatientName != nil {
		name = *a.PatientName
	}
	return schedule.Appointment{
		ID:            a.ID,
		PatientID:     a.PatientID,
		PatientName:   name,
		Date:          a.Date.Format(dateLayout),
		StartTime:     schedule.FormatClock(a.StartMin),
		DurationMin:   a.DurationMin,
		Status:        schedule.Status(a.Status),
		Type:          a.Type,
		Channel:       a.Channel,
		Reason:        a.Reason,
		IsBlock:       a.IsBlock,
		AllowOverbook: a.AllowOverbook,
	}
}

func toEngine(rows []Appointment) []schedule.Appointment {
	out := make([]schedule.Appointment, len(rows))
	for i, a := range rows {
		out[i] = toEngineOne(a)
	}
	return out
}

func fromDraft(d schedule.Draft) (*Appointment, error) {
	day, err := time.Parse(dateLayout, d.Date)
	if err != nil {
		return nil, fmt.Errorf("parse draft date: %w", err)
	}
	startMin, err := schedule.ParseClock(d.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse draft time: %w", err)
	}

	duration := d.DurationMin
	if duration <= 0 {
		duration = schedule.DefaultStepMin
	}

	return &Appointment{
		PatientID:     d.PatientID,
		Date:          day,
		StartMin:      startMin,
		DurationMin:   duration,
		Type:          d.Type,
		Channel:       d.Channel,
		Reason:        d.Reason,
		IsBlock:       d.IsBlock,
		AllowOverbook: d.AllowOverbook,
	}, nil
}
