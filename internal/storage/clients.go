package storage

import (
	"context"
	"database/sql"
	"fmt"

	"atelier/internal/core"
)

const clientColumns = `id, name, email, phone, wedding_date, due_date, recommended, notes, created_at`

func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}

	err := r.withinTx(ctx, func(tx DBTX) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO clients (name, email, phone, wedding_date, due_date, recommended, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Name, c.Email, c.Phone, nullableTime(c.WeddingDate), nullableTime(c.DueDate),
			c.Recommended, c.Notes, formatTime(c.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert client: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("client id: %w", err)
		}
		for i := range c.Projects {
			c.Projects[i].ClientID = c.ID
			p, err := insertProject(ctx, tx, c.Projects[i], c.CreatedAt)
			if err != nil {
				return err
			}
			c.Projects[i] = p
		}
		return nil
	})
	if err != nil {
		return core.Client{}, err
	}

	if c.Projects == nil {
		c.Projects = []core.Project{}
	}
	c.Payments = []core.Payment{}
	r.logger.InfoContext(ctx, "Client created", "client_id", c.ID, "projects", len(c.Projects))
	return c, nil
}

func (r *SQLiteRepository) GetClient(ctx context.Context, id int64) (core.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err != nil {
		return core.Client{}, notFound(err, "client", id)
	}

	projects, err := r.loadProjects(ctx, `WHERE p.client_id = ?`, id)
	if err != nil {
		return core.Client{}, err
	}
	measurements, err := r.loadMeasurements(ctx, `WHERE m.project_id IN (SELECT id FROM projects WHERE client_id = ?)`, id)
	if err != nil {
		return core.Client{}, err
	}
	for i := range projects {
		projects[i].Measurements = measurements[projects[i].ID]
	}
	c.Projects = projects

	if c.Payments, err = r.loadPayments(ctx, `WHERE client_id = ? ORDER BY date DESC, id DESC`, id); err != nil {
		return core.Client{}, err
	}
	if c.Appointments, err = r.loadAppointments(ctx, `WHERE a.client_id = ? ORDER BY a.start_at`, id); err != nil {
		return core.Client{}, err
	}
	return c, nil
}

// ListClients loads every client with projects, project expenses and
// payments using one query per table.
func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []core.Client{}
	index := map[int64]int{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.Projects = []core.Project{}
		c.Payments = []core.Payment{}
		index[c.ID] = len(clients)
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}

	projects, err := r.loadProjects(ctx, ``)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if i, ok := index[p.ClientID]; ok {
			clients[i].Projects = append(clients[i].Projects, p)
		}
	}

	payments, err := r.loadPayments(ctx, `ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if i, ok := index[p.ClientID]; ok {
			clients[i].Payments = append(clients[i].Payments, p)
		}
	}
	return clients, nil
}

func (r *SQLiteRepository) UpdateClient(ctx context.Context, c core.Client) (core.Client, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, email = ?, phone = ?, wedding_date = ?, due_date = ?, recommended = ?, notes = ?
		WHERE id = ?`,
		c.Name, c.Email, c.Phone, nullableTime(c.WeddingDate), nullableTime(c.DueDate), c.Recommended, c.Notes, c.ID,
	)
	if err != nil {
		return core.Client{}, fmt.Errorf("update client %d: %w", c.ID, err)
	}
	if err := requireRow(res, "client", c.ID); err != nil {
		return core.Client{}, err
	}
	return r.GetClient(ctx, c.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(s rowScanner) (core.Client, error) {
	var (
		c            core.Client
		wedding, due sql.NullString
		createdAt    string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &wedding, &due, &c.Recommended, &c.Notes, &createdAt); err != nil {
		return core.Client{}, err
	}
	var err error
	if c.WeddingDate, err = parseNullableTime(wedding); err != nil {
		return core.Client{}, err
	}
	if c.DueDate, err = parseNullableTime(due); err != nil {
		return core.Client{}, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Client{}, err
	}
	return c, nil
}
