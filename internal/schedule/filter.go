package schedule

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultDebounceWindow is the quiet window applied to filter changes before
// a reload is triggered.
const DefaultDebounceWindow = 280 * time.Millisecond

// FilterState carries the agenda's free-text name filter and status filter.
// Terms are compared in normalized form, see Normalize.
type FilterState struct {
	NameTerm   string `json:"name_term"`
	StatusTerm string `json:"status_term"`
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize strips diacritics, lowercases and trims the term so free-text
// filters match regardless of accents or casing.
func Normalize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// MatchesName reports whether the normalized patient name contains the
// normalized term. An empty term matches everything.
func MatchesName(patientName, term string) bool {
	term = Normalize(term)
	if term == "" {
		return true
	}
	return strings.Contains(Normalize(patientName), term)
}

// MatchesStatus classifies a status display label against a status filter
// term. Labels are legacy free text, not a strict enum, so classification is
// an ordered substring heuristic; the order matters because the completed
// ("atendido") and in-progress ("em atendimento") families share the
// substring "atend".
func MatchesStatus(statusLabel, filterTerm string) bool {
	filter := Normalize(filterTerm)
	if filter == "" {
		return true
	}
	status := Normalize(statusLabel)

	switch {
	case strings.Contains(filter, "concl"):
		// Completed family: "concluído" and "atendido" variants.
		return strings.Contains(status, "concl") || strings.Contains(status, "atendid")
	case strings.Contains(filter, "agend"):
		// Scheduled family: "agendado" and "marcado" variants.
		return strings.Contains(status, "agend") || strings.Contains(status, "marc")
	case strings.Contains(filter, "em atendimento"),
		strings.Contains(filter, "em_atend"),
		strings.Contains(filter, "atend"):
		// In-progress family. "atendido" also contains "atend", so the
		// bare-"atend" clause must exclude it explicitly.
		return strings.Contains(status, "em_atend") ||
			strings.Contains(status, "em atend") ||
			(strings.Contains(status, "atend") && !strings.Contains(status, "atendid"))
	default:
		return strings.Contains(status, filter)
	}
}

// matchesFilter applies both filter dimensions to one appointment.
func matchesFilter(a Appointment, f FilterState) bool {
	if a.IsBlock {
		// Blocks are clinic unavailability, not patient bookings; the name
		// filter does not apply to them.
		return MatchesStatus(a.Status.Label(), f.StatusTerm)
	}
	return MatchesName(a.PatientName, f.NameTerm) && MatchesStatus(a.Status.Label(), f.StatusTerm)
}

// Debouncer coalesces rapid filter changes into a single trailing-edge
// callback after a fixed quiet window. A later Trigger cancels a pending
// earlier one.
type Debouncer struct {
	window time.Duration
	fn     func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer builds a debouncer invoking fn after window of quiet. A zero
// window falls back to DefaultDebounceWindow.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, fn: fn}
}

// Trigger (re)starts the quiet window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fn)
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
