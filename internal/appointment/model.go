package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the persisted agenda row. Clinician time blocks live in the
// same table with is_block set and no patient.
type Appointment struct {
	ID            uuid.UUID
	PatientID     *uuid.UUID
	PatientName   *string // joined from patients, nil for blocks
	Date          time.Time
	StartMin      int // minutes from midnight
	DurationMin   int
	Status        string
	Type          string
	Channel       string
	Reason        string
	IsBlock       bool
	AllowOverbook bool
	CancelReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EndMin returns the exclusive end of the occupied interval.
func (a Appointment) EndMin() int {
	return a.StartMin + a.DurationMin
}

// ScheduleWindow is the clinic working-hours row the slot grid derives from.
type ScheduleWindow struct {
	DayStartMin int
	DayEndMin   int
	StepMin     int
	UpdatedAt   time.Time
}
