package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotABlock           = errors.New("appointment is not a time block")
	ErrWindowNotConfigured = errors.New("schedule window not configured")
)

// Repository contains all DB interactions needed by the agenda gateway and
// the no-show worker.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Agenda reads
	ListByDate(ctx context.Context, date time.Time) ([]Appointment, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Writes
	Create(ctx context.Context, a Appointment) (*Appointment, error)
	Update(ctx context.Context, id uuid.UUID, a Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Cancel(ctx context.Context, id uuid.UUID, reason string) error
	Unblock(ctx context.Context, id uuid.UUID, reason string) error

	// Conflict authority
	CountOverlaps(ctx context.Context, date time.Time, startMin, endMin int, ignoreID *uuid.UUID) (bookings, blocks int, err error)

	// Clinic configuration
	GetScheduleWindow(ctx context.Context) (*ScheduleWindow, error)

	// No-show worker
	FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error)
}
