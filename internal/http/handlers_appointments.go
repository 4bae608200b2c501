package http

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"atelier/internal/core"
	"atelier/internal/services"
)

// flexInt accepts a JSON number or a numeric string; anything else decodes
// to zero and fails validation later.
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(data), `"`)))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		v = 0
	}
	*n = flexInt(v)
	return nil
}

type bookingRequest struct {
	ServiceName string  `json:"serviceName"`
	Title       string  `json:"title"`
	ClientID    flexInt `json:"clientId"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Duration    flexInt `json:"duration"`
	Notes       string  `json:"notes"`
}

func (req bookingRequest) booking() services.Booking {
	name := sanitizeInput(req.ServiceName)
	if name == "" {
		name = sanitizeInput(req.Title)
	}
	return services.Booking{
		ClientID:    int64(req.ClientID),
		ServiceName: name,
		Date:        req.Date,
		Time:        req.Time,
		Duration:    int(req.Duration),
		Notes:       req.Notes,
	}
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Appointments.Calendar(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch appointments")
		return
	}
	NewJSONResponse().Body(events).Write(w)
}

func (s *Server) handleBookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	appt, err := s.svc.Appointments.Book(r.Context(), req.booking())
	if err != nil {
		writeServiceError(w, r, err, "Failed to create appointment")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(appt).Write(w)
}

// handleRescheduleAppointment moves an appointment after a drag/drop in the
// calendar. notify defaults to true and may also be given as a query flag.
func (s *Server) handleRescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid appointment ID").Write(w)
		return
	}
	var req struct {
		Start  *time.Time `json:"start"`
		End    *time.Time `json:"end"`
		Notify *bool      `json:"notify"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Start == nil || req.End == nil {
		ValidationFailed(core.ErrMissingDate).Write(w)
		return
	}
	notify := parseBoolParam(r.URL.Query().Get("notify"), true)
	if req.Notify != nil {
		notify = *req.Notify
	}

	appt, err := s.svc.Appointments.Reschedule(r.Context(), id, *req.Start, *req.End, notify)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update appointment")
		return
	}
	NewJSONResponse().Body(appt).Write(w)
}

func (s *Server) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		BadRequestError("Invalid appointment ID").Write(w)
		return
	}
	if err := s.svc.Appointments.Cancel(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Failed to cancel appointment")
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
