package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// activeStatusesSQL filters rows that still occupy agenda time. Canceled and
// rescheduled rows are history, not occupancy.
const activeStatusesSQL = `status NOT IN ('CANCELED', 'RESCHEDULED')`

const appointmentColumns = `
	a.id, a.patient_id, p.name, a.date, a.start_min, a.duration_min,
	a.status, a.type, a.channel, a.reason, a.is_block, a.allow_overbook,
	a.cancel_reason, a.created_at, a.updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientName,
		&a.Date,
		&a.StartMin,
		&a.DurationMin,
		&a.Status,
		&a.Type,
		&a.Channel,
		&a.Reason,
		&a.IsBlock,
		&a.AllowOverbook,
		&a.CancelReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListByDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		WHERE a.date = $1
		ORDER BY a.start_min, a.created_at
	`, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByRange(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		WHERE a.date BETWEEN $1 AND $2
		ORDER BY a.date, a.start_min, a.created_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, date, start_min, duration_min, status, type,
			 channel, reason, is_block, allow_overbook, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING id
	`, id, a.PatientID, a.Date, a.StartMin, a.DurationMin, a.Status, a.Type,
		a.Channel, a.Reason, a.IsBlock, a.AllowOverbook)

	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, a Appointment) (*Appointment, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    date = $3,
		    start_min = $4,
		    duration_min = $5,
		    type = $6,
		    channel = $7,
		    reason = $8,
		    allow_overbook = $9,
		    updated_at = now()
		WHERE id = $1
	`, id, a.PatientID, a.Date, a.StartMin, a.DurationMin, a.Type, a.Channel,
		a.Reason, a.AllowOverbook)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'CANCELED',
		    cancel_reason = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) Unblock(ctx context.Context, id uuid.UUID, reason string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !existing.IsBlock {
		return ErrNotABlock
	}
	return r.Cancel(ctx, id, reason)
}

func (r *PgRepository) CountOverlaps(ctx context.Context, date time.Time, startMin, endMin int, ignoreID *uuid.UUID) (int, int, error) {
	var bookings, blocks int

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE NOT is_block),
			COUNT(*) FILTER (WHERE is_block)
		FROM appointments
		WHERE date = $1
		  AND start_min < $3
		  AND start_min + duration_min > $2
		  AND `+activeStatusesSQL+`
		  AND ($4::uuid IS NULL OR id <> $4)
	`, date, startMin, endMin, ignoreID).Scan(&bookings, &blocks)
	if err != nil {
		return 0, 0, fmt.Errorf("count overlaps: %w", err)
	}

	return bookings, blocks, nil
}

func (r *PgRepository) GetScheduleWindow(ctx context.Context) (*ScheduleWindow, error) {
	var w ScheduleWindow

	err := r.pool.QueryRow(ctx, `
		SELECT day_start_min, day_end_min, step_min, updated_at
		FROM schedule_settings
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&w.DayStartMin, &w.DayEndMin, &w.StepMin, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotConfigured
		}
		return nil, err
	}

	return &w, nil
}

func (r *PgRepository) FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		WHERE a.status IN ('SCHEDULED', 'CONFIRMED')
		  AND NOT a.is_block
		  AND (a.date + (a.start_min + a.duration_min) * interval '1 minute') < $1
	`, before)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}
