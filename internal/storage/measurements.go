package storage

import (
	"context"
	"fmt"

	"atelier/internal/core"
)

func (r *SQLiteRepository) CreateMeasurement(ctx context.Context, m core.Measurement) (core.Measurement, error) {
	if m.Date.IsZero() {
		m.Date = r.now()
	}
	if err := m.Validate(); err != nil {
		return core.Measurement{}, err
	}
	if err := r.exists(ctx, "projects", m.ProjectID); err != nil {
		return core.Measurement{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO measurements (project_id, date, bust, waist, hips, shirt_length, skirt_length,
			sleeve_length, sleeve_width, shoulder_to_bust, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ProjectID, formatTime(m.Date), m.Bust, m.Waist, m.Hips, m.ShirtLength, m.SkirtLength,
		m.SleeveLength, m.SleeveWidth, m.ShoulderToBust, m.Notes,
	)
	if err != nil {
		return core.Measurement{}, fmt.Errorf("insert measurement: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return core.Measurement{}, fmt.Errorf("measurement id: %w", err)
	}
	return m, nil
}

// UpdateMeasurement replaces the numeric fields and notes; the owning
// project and the date are kept.
func (r *SQLiteRepository) UpdateMeasurement(ctx context.Context, m core.Measurement) (core.Measurement, error) {
	if err := m.ValidateValues(); err != nil {
		return core.Measurement{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE measurements SET bust = ?, waist = ?, hips = ?, shirt_length = ?, skirt_length = ?,
			sleeve_length = ?, sleeve_width = ?, shoulder_to_bust = ?, notes = ?
		WHERE id = ?`,
		m.Bust, m.Waist, m.Hips, m.ShirtLength, m.SkirtLength, m.SleeveLength, m.SleeveWidth, m.ShoulderToBust, m.Notes, m.ID,
	)
	if err != nil {
		return core.Measurement{}, fmt.Errorf("update measurement %d: %w", m.ID, err)
	}
	if err := requireRow(res, "measurement", m.ID); err != nil {
		return core.Measurement{}, err
	}
	found, err := r.loadMeasurements(ctx, `WHERE m.id = ?`, m.ID)
	if err != nil {
		return core.Measurement{}, err
	}
	for _, list := range found {
		return list[0], nil
	}
	return core.Measurement{}, fmt.Errorf("measurement %d: %w", m.ID, core.ErrNotFound)
}

func (r *SQLiteRepository) DeleteMeasurement(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete measurement %d: %w", id, err)
	}
	return requireRow(res, "measurement", id)
}

func (r *SQLiteRepository) loadMeasurements(ctx context.Context, where string, args ...any) (map[int64][]core.Measurement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.project_id, m.date, m.bust, m.waist, m.hips, m.shirt_length, m.skirt_length,
			m.sleeve_length, m.sleeve_width, m.shoulder_to_bust, m.notes
		FROM measurements m `+where+` ORDER BY m.date DESC, m.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	out := map[int64][]core.Measurement{}
	for rows.Next() {
		var (
			m    core.Measurement
			date string
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &date, &m.Bust, &m.Waist, &m.Hips, &m.ShirtLength, &m.SkirtLength,
			&m.SleeveLength, &m.SleeveWidth, &m.ShoulderToBust, &m.Notes); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		if m.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out[m.ProjectID] = append(out[m.ProjectID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return out, nil
}
