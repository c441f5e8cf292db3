package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicore/agenda/internal/schedule"
)

type SubmitRequest struct {
	PatientID     string `json:"patient_id,omitempty"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	DurationMin   int    `json:"duration_min"`
	Type          string `json:"type,omitempty"`
	Channel       string `json:"channel,omitempty"`
	Reason        string `json:"reason,omitempty"`
	AllowOverbook bool   `json:"allow_overbook,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status"` // localized display label
	Reason string `json:"reason,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type BlockRequest struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	DurationMin int    `json:"duration_min"`
	Reason      string `json:"reason,omitempty"`
}

type UnblockRequest struct {
	Reason string `json:"reason,omitempty"`
}

type FilterRequest struct {
	NameTerm   string `json:"name_term"`
	StatusTerm string `json:"status_term"`
}

type AppointmentResponse struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     *uuid.UUID `json:"patient_id,omitempty"`
	PatientName   string     `json:"patient_name,omitempty"`
	Date          string     `json:"date"`
	StartTime     string     `json:"start_time"`
	DurationMin   int        `json:"duration_min"`
	Status        string     `json:"status"`
	StatusLabel   string     `json:"status_label"`
	Type          string     `json:"type,omitempty"`
	Channel       string     `json:"channel,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	IsBlock       bool       `json:"is_block,omitempty"`
	AllowOverbook bool       `json:"allow_overbook,omitempty"`
	Updating      bool       `json:"updating,omitempty"`
}

type DayViewResponse struct {
	Date       string                           `json:"date"`
	Slots      []string                         `json:"slots"`
	Placements map[string][]AppointmentResponse `json:"placements"`
	Now        *schedule.NowMark                `json:"now,omitempty"`
	IsLoading  bool                             `json:"is_loading"`
	Error      string                           `json:"error,omitempty"`
}

type WeekViewResponse struct {
	Anchor    string                                      `json:"anchor"`
	Days      []string                                    `json:"days"`
	Slots     []string                                    `json:"slots"`
	Matrix    map[string]map[string][]AppointmentResponse `json:"matrix"`
	IsLoading bool                                        `json:"is_loading"`
	Error     string                                      `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		PatientID:     a.PatientID,
		PatientName:   a.PatientName,
		Date:          a.Date,
		StartTime:     a.StartTime,
		DurationMin:   a.DurationMin,
		Status:        string(a.Status),
		StatusLabel:   a.Status.Label(),
		Type:          a.Type,
		Channel:       a.Channel,
		Reason:        a.Reason,
		IsBlock:       a.IsBlock,
		AllowOverbook: a.AllowOverbook,
		Updating:      a.Updating,
	}
}

func toDayViewResponse(v schedule.DayView) DayViewResponse {
	resp := DayViewResponse{
		Date:       v.Date,
		Slots:      v.Slots,
		Placements: make(map[string][]AppointmentResponse, len(v.Placements)),
		Now:        v.Now,
		IsLoading:  v.IsLoading,
		Error:      v.Err,
	}
	for slot, appts := range v.Placements {
		out := make([]AppointmentResponse, len(appts))
		for i, a := range appts {
			out[i] = toAppointmentResponse(a)
		}
		resp.Placements[slot] = out
	}
	return resp
}

func toWeekViewResponse(v schedule.WeekView) WeekViewResponse {
	resp := WeekViewResponse{
		Anchor:    v.Anchor,
		Days:      v.Days,
		Slots:     v.Slots,
		Matrix:    make(map[string]map[string][]AppointmentResponse, len(v.Matrix)),
		IsLoading: v.IsLoading,
		Error:     v.Err,
	}
	for day, bySlot := range v.Matrix {
		out := make(map[string][]AppointmentResponse, len(bySlot))
		for slot, appts := range bySlot {
			items := make([]AppointmentResponse, len(appts))
			for i, a := range appts {
				items[i] = toAppointmentResponse(a)
			}
			out[slot] = items
		}
		resp.Matrix[day] = out
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
