package core

import "time"

// CalendarEvent is the shape the calendar view consumes.
type CalendarEvent struct {
	ID       int64       `json:"id"`
	Title    string      `json:"title"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
	Resource Appointment `json:"resource"`
}

// CalendarEvents converts scheduled appointments to calendar events, titled
// by service name. Cancelled appointments are left out.
func CalendarEvents(appointments []Appointment) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(appointments))
	for _, a := range appointments {
		if a.Status == StatusCancelled {
			continue
		}
		title := "Appointment"
		if a.Service != nil && a.Service.Name != "" {
			title = a.Service.Name
		}
		events = append(events, CalendarEvent{ID: a.ID, Title: title, Start: a.Start, End: a.End, Resource: a})
	}
	return events
}

// Reschedule moves the appointment to [start, end) and keeps the stored
// duration in step.
func (a Appointment) Reschedule(start, end time.Time) (Appointment, error) {
	if a.Status == StatusCancelled {
		return Appointment{}, ErrAlreadyCancelled
	}
	a.Start = start
	a.End = end
	if err := a.Validate(); err != nil {
		return Appointment{}, err
	}
	a.DurationMinutes = int(end.Sub(start) / time.Minute)
	return a, nil
}
