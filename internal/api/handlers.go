package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/agenda/internal/appointment"
	"github.com/clinicore/agenda/internal/prefs"
	"github.com/clinicore/agenda/internal/schedule"
)

// sessionID identifies the caller's agenda session. Falls back to a shared
// session so a bare curl still works in dev.
func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Agenda-Session"); id != "" {
		return id
	}
	return "default"
}

func dayViewHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o := sessions.Get(r.Context(), sessionID(r))

		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}

		if err := o.GoToDate(r.Context(), date); err != nil {
			handleAgendaError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDayViewResponse(o.Session().Day()))
	}
}

func weekViewHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o := sessions.Get(r.Context(), sessionID(r))

		anchor := r.URL.Query().Get("date")
		if anchor == "" {
			anchor = time.Now().Format("2006-01-02")
		}

		if err := o.GoToWeek(r.Context(), anchor); err != nil {
			handleAgendaError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWeekViewResponse(o.Session().Week()))
	}
}

func filterHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FilterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		o := sessions.Get(r.Context(), sessionID(r))
		o.OnFilterChange(schedule.FilterState{NameTerm: req.NameTerm, StatusTerm: req.StatusTerm})

		// The reload is debounced; the caller polls the view afterwards.
		w.WriteHeader(http.StatusAccepted)
	}
}

func submitHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		draft := schedule.Draft{
			Date:          req.Date,
			StartTime:     req.StartTime,
			DurationMin:   req.DurationMin,
			Type:          req.Type,
			Channel:       req.Channel,
			Reason:        req.Reason,
			AllowOverbook: req.AllowOverbook,
		}

		if req.PatientID != "" {
			pid, err := uuid.Parse(req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			draft.PatientID = &pid
		}

		status := http.StatusCreated
		if idStr := chi.URLParam(r, "id"); idStr != "" {
			id, err := uuid.Parse(idStr)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
				return
			}
			draft.ID = &id
			status = http.StatusOK
		}

		o := sessions.Get(r.Context(), sessionID(r))
		appt, err := o.Submit(r.Context(), draft)
		if err != nil {
			handleAgendaError(w, err)
			return
		}
		writeJSON(w, status, toAppointmentResponse(*appt))
	}
}

func statusHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req StatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		o := sessions.Get(r.Context(), sessionID(r))
		if err := o.ChangeStatus(r.Context(), id, req.Status, req.Reason); err != nil {
			handleAgendaError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func cancelHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		o := sessions.Get(r.Context(), sessionID(r))
		if err := o.Cancel(r.Context(), id, req.Reason); err != nil {
			handleAgendaError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func blockHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		o := sessions.Get(r.Context(), sessionID(r))
		appt, err := o.Submit(r.Context(), schedule.Draft{
			Date:        req.Date,
			StartTime:   req.StartTime,
			DurationMin: req.DurationMin,
			Reason:      req.Reason,
			IsBlock:     true,
		})
		if err != nil {
			handleAgendaError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func unblockHandler(sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_block_id", "id must be a valid UUID")
			return
		}

		var req UnblockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		o := sessions.Get(r.Context(), sessionID(r))
		if err := o.Unblock(r.Context(), id, req.Reason); err != nil {
			handleAgendaError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getPrefsHandler(store *prefs.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.Load(r.Context(), sessionID(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "prefs_unavailable", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func putPrefsHandler(store *prefs.Store, sessions *SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p prefs.Prefs
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sid := sessionID(r)
		if err := store.Save(r.Context(), sid, p); err != nil {
			writeError(w, http.StatusInternalServerError, "prefs_save_failed", err.Error())
			return
		}

		// Keep the live session aligned with what was just persisted.
		o := sessions.Get(r.Context(), sid)
		o.Session().SetFilter(p.Filter)
		o.Session().SetActiveView(p.ViewMode)

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAgendaError(w http.ResponseWriter, err error) {
	var (
		cerr *schedule.ConflictError
		ferr *schedule.FetchError
		merr *schedule.MutationError
	)
	switch {
	case errors.As(err, &cerr):
		writeError(w, http.StatusConflict, cerr.Code, cerr.Message)
	case errors.Is(err, schedule.ErrMissingCancelReason):
		writeError(w, http.StatusBadRequest, "missing_cancel_reason", err.Error())
	case errors.Is(err, schedule.ErrUnknownStatusLabel):
		writeError(w, http.StatusBadRequest, "unknown_status", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotABlock):
		writeError(w, http.StatusConflict, "not_a_block", err.Error())
	case errors.As(err, &ferr):
		writeError(w, http.StatusBadGateway, "agenda_fetch_failed", ferr.Error())
	case errors.As(err, &merr):
		writeError(w, http.StatusBadGateway, "mutation_failed", merr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
