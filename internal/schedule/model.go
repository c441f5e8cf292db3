package schedule

import "github.com/google/uuid"

// Appointment is the engine's read-only view of one agenda entry, as handed
// over by the fetch collaborator. The engine never persists it; the only
// field it touches is the optimistic Updating marker.
type Appointment struct {
	ID            uuid.UUID
	PatientID     *uuid.UUID
	PatientName   string
	Date          string // "2006-01-02"
	StartTime     string // "HH:MM"
	DurationMin   int
	Status        Status
	Type          string
	Channel       string
	Reason        string
	IsBlock       bool
	AllowOverbook bool

	// Updating marks a resource with a mutation in flight, for busy styling.
	Updating bool
}

// Draft is the create/edit submission payload. A nil ID means create; a set
// ID means update and excludes that appointment from its own conflict check.
type Draft struct {
	ID            *uuid.UUID
	PatientID     *uuid.UUID
	Date          string
	StartTime     string
	DurationMin   int
	Type          string
	Channel       string
	Reason        string
	IsBlock       bool
	AllowOverbook bool
}
