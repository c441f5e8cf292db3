package schedule

// Status is the canonical, machine-readable appointment status. Display
// labels are a separate localized set, see Label and StatusFromLabel.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusWaiting     Status = "WAITING"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusDone        Status = "DONE"
	StatusNoShow      Status = "NO_SHOW"
	StatusCanceled    Status = "CANCELED"
	StatusRescheduled Status = "RESCHEDULED"
)

// statusLabels maps canonical statuses to the legacy pt-BR agenda labels.
var statusLabels = map[Status]string{
	StatusScheduled:   "Agendado",
	StatusConfirmed:   "Confirmado",
	StatusWaiting:     "Aguardando",
	StatusInProgress:  "Em atendimento",
	StatusDone:        "Atendido",
	StatusNoShow:      "Faltou",
	StatusCanceled:    "Cancelado",
	StatusRescheduled: "Remarcado",
}

var labelStatuses = func() map[string]Status {
	m := make(map[string]Status, len(statusLabels))
	for s, l := range statusLabels {
		m[Normalize(l)] = s
	}
	return m
}()

// Label returns the localized display label for the status. Unknown
// statuses fall back to the raw canonical value so legacy rows still render.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// StatusFromLabel resolves a localized display label back to its canonical
// status. Matching is accent- and case-insensitive.
func StatusFromLabel(label string) (Status, bool) {
	s, ok := labelStatuses[Normalize(label)]
	return s, ok
}
