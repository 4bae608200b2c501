package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atelier/internal/amqp"
	"atelier/internal/core"
	"atelier/internal/ports"
)

// Booking is a request to put an appointment in the calendar. Date and Time
// are wall-clock values ("2006-01-02", "15:04") in the studio's time zone.
type Booking struct {
	ClientID    int64
	ServiceName string
	Date        string
	Time        string
	Duration    int
	Notes       string
}

func (b Booking) start(loc *time.Location) (time.Time, error) {
	if b.ClientID <= 0 {
		return time.Time{}, core.ErrMissingClient
	}
	fields := map[string]string{}
	if strings.TrimSpace(b.ServiceName) == "" {
		fields["serviceName"] = core.ErrEmptyServiceName.Error()
	}
	if b.Duration <= 0 {
		fields["duration"] = core.ErrInvalidDuration.Error()
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(b.Date)+" "+strings.TrimSpace(b.Time), loc)
	if err != nil {
		fields["start"] = "date must be YYYY-MM-DD and time HH:MM"
	}
	if len(fields) > 0 {
		return time.Time{}, &core.ValidationError{Fields: fields}
	}
	return start, nil
}

// AppointmentService books, moves and cancels fittings and consultations.
type AppointmentService struct {
	store     ports.AppointmentStore
	publisher NotificationPublisher
	loc       *time.Location
	logger    *slog.Logger
}

// NewAppointmentService accepts a nil publisher; notifications are then
// skipped and confirmationSent stays false.
func NewAppointmentService(store ports.AppointmentStore, publisher NotificationPublisher, loc *time.Location, logger *slog.Logger) *AppointmentService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AppointmentService{store: store, publisher: publisher, loc: loc, logger: logger}
}

// Calendar lists scheduled appointments as calendar events.
func (s *AppointmentService) Calendar(ctx context.Context) ([]core.CalendarEvent, error) {
	appts, err := s.store.ListAppointments(ctx)
	if err != nil {
		return nil, err
	}
	return core.CalendarEvents(appts), nil
}

// Book finds or creates the named service, stores the appointment and, when
// the client has an e-mail address, queues a confirmation.
func (s *AppointmentService) Book(ctx context.Context, b Booking) (core.Appointment, error) {
	start, err := b.start(s.loc)
	if err != nil {
		return core.Appointment{}, err
	}

	svc, err := s.store.FindOrCreateService(ctx, b.ServiceName, b.Duration)
	if err != nil {
		return core.Appointment{}, fmt.Errorf("find service: %w", err)
	}

	appt, err := s.store.CreateAppointment(ctx, core.Appointment{
		ClientID:        b.ClientID,
		ServiceID:       svc.ID,
		Start:           start,
		End:             start.Add(time.Duration(b.Duration) * time.Minute),
		DurationMinutes: b.Duration,
		Status:          core.StatusScheduled,
		Notes:           strings.TrimSpace(b.Notes),
	})
	if err != nil {
		return core.Appointment{}, err
	}
	s.logger.InfoContext(ctx, "Appointment booked",
		"appointment_id", appt.ID,
		"client_id", appt.ClientID,
		"service", svc.Name,
		"start", appt.Start)

	if appt.Client != nil && appt.Client.Email != "" {
		if s.notify(ctx, amqp.NotifyConfirmation, appt) {
			if err := s.store.MarkConfirmationSent(ctx, appt.ID); err != nil {
				s.logger.ErrorContext(ctx, "Failed to mark confirmation sent", "appointment_id", appt.ID, "error", err)
			} else {
				appt.ConfirmationSent = true
			}
		}
	}
	return appt, nil
}

// Reschedule moves an appointment; notify queues a reschedule notice for
// clients with an e-mail address.
func (s *AppointmentService) Reschedule(ctx context.Context, id int64, start, end time.Time, notify bool) (core.Appointment, error) {
	appt, err := s.store.RescheduleAppointment(ctx, id, start, end)
	if err != nil {
		return core.Appointment{}, err
	}
	s.logger.InfoContext(ctx, "Appointment rescheduled",
		"appointment_id", appt.ID,
		"start", appt.Start,
		"end", appt.End,
		"notify", notify)

	if notify && appt.Client != nil && appt.Client.Email != "" {
		s.notify(ctx, amqp.NotifyReschedule, appt)
	}
	return appt, nil
}

func (s *AppointmentService) Cancel(ctx context.Context, id int64) error {
	if err := s.store.CancelAppointment(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Appointment cancelled", "appointment_id", id)
	return nil
}

// notify reports whether the notification was queued.
func (s *AppointmentService) notify(ctx context.Context, kind amqp.NotificationKind, appt core.Appointment) bool {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping notification",
			"appointment_id", appt.ID, "kind", kind)
		return false
	}
	msg, err := amqp.NewNotificationMessage(kind, appt)
	if err == nil {
		err = s.publisher.PublishNotification(ctx, msg)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to queue notification",
			"appointment_id", appt.ID, "kind", kind, "error", err)
		return false
	}
	return true
}
