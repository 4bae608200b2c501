package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atelier/internal/core"
)

func (r *SQLiteRepository) FindOrCreateService(ctx context.Context, name string, defaultDuration int) (core.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Service{}, core.ErrEmptyServiceName
	}
	if defaultDuration <= 0 {
		return core.Service{}, core.ErrInvalidDuration
	}

	// Names are unique; an existing row wins over the requested duration.
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO services (name, default_duration_min, active) VALUES (?, ?, 1)`, name, defaultDuration)
	if err != nil {
		return core.Service{}, fmt.Errorf("insert service: %w", err)
	}

	var (
		s      core.Service
		active int
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name, default_duration_min, active FROM services WHERE name = ?`, name,
	).Scan(&s.ID, &s.Name, &s.DefaultDurationMin, &active)
	if err != nil {
		return core.Service{}, fmt.Errorf("get service %q: %w", name, err)
	}
	s.Active = active != 0
	return s, nil
}

func (r *SQLiteRepository) CreateAppointment(ctx context.Context, a core.Appointment) (core.Appointment, error) {
	if err := a.Validate(); err != nil {
		return core.Appointment{}, err
	}
	if err := r.exists(ctx, "clients", a.ClientID); err != nil {
		return core.Appointment{}, err
	}
	if a.Status == "" {
		a.Status = core.StatusScheduled
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO appointments (client_id, service_id, start_at, end_at, duration_minutes, status, notes, confirmation_sent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ClientID, a.ServiceID, formatTime(a.Start), formatTime(a.End), a.DurationMinutes, string(a.Status),
		a.Notes, boolToInt(a.ConfirmationSent), formatTime(r.now()),
	)
	if err != nil {
		return core.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Appointment{}, fmt.Errorf("appointment id: %w", err)
	}
	return r.GetAppointment(ctx, id)
}

func (r *SQLiteRepository) GetAppointment(ctx context.Context, id int64) (core.Appointment, error) {
	list, err := r.loadAppointments(ctx, `WHERE a.id = ?`, id)
	if err != nil {
		return core.Appointment{}, err
	}
	if len(list) == 0 {
		return core.Appointment{}, fmt.Errorf("appointment %d: %w", id, core.ErrNotFound)
	}
	return list[0], nil
}

func (r *SQLiteRepository) ListAppointments(ctx context.Context) ([]core.Appointment, error) {
	return r.loadAppointments(ctx, `WHERE a.status = ? ORDER BY a.start_at, a.id`, string(core.StatusScheduled))
}

func (r *SQLiteRepository) RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) (core.Appointment, error) {
	current, err := r.GetAppointment(ctx, id)
	if err != nil {
		return core.Appointment{}, err
	}
	moved, err := current.Reschedule(start, end)
	if err != nil {
		return core.Appointment{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE appointments SET start_at = ?, end_at = ?, duration_minutes = ? WHERE id = ?`,
		formatTime(moved.Start), formatTime(moved.End), moved.DurationMinutes, id,
	)
	if err != nil {
		return core.Appointment{}, fmt.Errorf("reschedule appointment %d: %w", id, err)
	}
	return moved, nil
}

func (r *SQLiteRepository) MarkConfirmationSent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET confirmation_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark confirmation sent %d: %w", id, err)
	}
	return requireRow(res, "appointment", id)
}

func (r *SQLiteRepository) CancelAppointment(ctx context.Context, id int64) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM appointments WHERE id = ?`, id).Scan(&status)
	if err != nil {
		return notFound(err, "appointment", id)
	}
	if core.AppointmentStatus(status) == core.StatusCancelled {
		return fmt.Errorf("appointment %d: %w", id, core.ErrAlreadyCancelled)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE appointments SET status = ? WHERE id = ?`, string(core.StatusCancelled), id)
	if err != nil {
		return fmt.Errorf("cancel appointment %d: %w", id, err)
	}
	return nil
}

// loadAppointments returns appointments joined with their service and a
// contact-only view of the client.
func (r *SQLiteRepository) loadAppointments(ctx context.Context, tail string, args ...any) ([]core.Appointment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.client_id, a.service_id, a.start_at, a.end_at, a.duration_minutes, a.status, a.notes,
			a.confirmation_sent, s.name, s.default_duration_min, s.active, c.name, c.email, c.phone
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		JOIN clients c ON c.id = a.client_id `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out := []core.Appointment{}
	for rows.Next() {
		var (
			a                  core.Appointment
			s                  core.Service
			c                  core.Client
			start, end, status string
			confirmed, active  int
		)
		err := rows.Scan(&a.ID, &a.ClientID, &a.ServiceID, &start, &end, &a.DurationMinutes, &status, &a.Notes,
			&confirmed, &s.Name, &s.DefaultDurationMin, &active, &c.Name, &c.Email, &c.Phone)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		if a.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if a.End, err = parseTime(end); err != nil {
			return nil, err
		}
		a.Status = core.AppointmentStatus(status)
		a.ConfirmationSent = confirmed != 0
		s.ID = a.ServiceID
		s.Active = active != 0
		c.ID = a.ClientID
		a.Service = &s
		a.Client = &c
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return out, nil
}
