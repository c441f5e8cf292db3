package schedule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownStatusLabel = errors.New("unknown status label")
	ErrMissingCancelReason = errors.New("cancellation requires a reason")
)

// ConfigLoadError wraps a failed clinic-configuration fetch. It is non-fatal:
// the engine falls back to the default working-hours template and only logs.
type ConfigLoadError struct {
	Cause error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("load schedule config: %v", e.Cause)
}

func (e *ConfigLoadError) Unwrap() error { return e.Cause }

// FetchError wraps a failed agenda fetch. It replaces the slot list inline,
// but only when the response is still current for its epoch.
type FetchError struct {
	View  ViewKey
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s agenda: %v", e.View, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// ConflictError is the remote authority's rejection of a proposed slot. It
// carries a machine code plus the human-readable message surfaced on the
// form, and always blocks persistence.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict %s: %s", e.Code, e.Message)
}

// MutationError wraps a failed state-changing call on one resource. The busy
// marker is reverted and interaction continues.
type MutationError struct {
	Kind  MutationKind
	ID    uuid.UUID
	Cause error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s mutation on %s: %v", e.Kind, e.ID, e.Cause)
}

func (e *MutationError) Unwrap() error { return e.Cause }
