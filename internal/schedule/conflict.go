package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConflictRequest is the shaped payload sent to the remote conflict
// authority. IgnoreID excludes the appointment being edited from its own
// overlap check; AllowOverbook is the fit-in override for intentional
// double-booking.
type ConflictRequest struct {
	Date          string
	StartTime     string
	DurationMin   int
	IgnoreID      *uuid.UUID
	AllowOverbook bool
}

// ConflictAuthority is the remote collaborator that decides whether a
// proposed slot conflicts. It returns a *ConflictError on rejection and any
// other error on transport failure.
type ConflictAuthority interface {
	CheckConflict(ctx context.Context, req ConflictRequest) error
}

// ConflictValidator shapes and routes conflict checks. It never computes
// overlap itself; the decision belongs to the authority.
type ConflictValidator struct {
	authority ConflictAuthority
}

func NewConflictValidator(authority ConflictAuthority) *ConflictValidator {
	return &ConflictValidator{authority: authority}
}

// Validate normalizes the draft's slot coordinates and asks the authority.
// A nil return means the slot may be persisted. Malformed dates or times are
// rejected locally as a ConflictError so the caller has a single failure
// path that blocks persistence.
func (v *ConflictValidator) Validate(ctx context.Context, d Draft) error {
	if _, err := time.Parse(dateLayout, d.Date); err != nil {
		return &ConflictError{Code: "invalid_date", Message: fmt.Sprintf("data inválida: %q", d.Date)}
	}
	if _, err := ParseClock(d.StartTime); err != nil {
		return &ConflictError{Code: "invalid_time", Message: fmt.Sprintf("horário inválido: %q", d.StartTime)}
	}

	duration := d.DurationMin
	if duration <= 0 {
		duration = DefaultStepMin
	}

	return v.authority.CheckConflict(ctx, ConflictRequest{
		Date:          d.Date,
		StartTime:     d.StartTime,
		DurationMin:   duration,
		IgnoreID:      d.ID,
		AllowOverbook: d.AllowOverbook,
	})
}
