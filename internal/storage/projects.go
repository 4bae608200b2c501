package storage

import (
	"context"
	"fmt"
	"time"

	"atelier/internal/core"
)

func insertProject(ctx context.Context, q DBTX, p core.Project, createdAt time.Time) (core.Project, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO projects (client_id, member_name, order_type, price_cents, is_picked_up, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ClientID, p.MemberName, string(p.OrderType), p.Price.Cents, boolToInt(p.IsPickedUp), formatTime(createdAt),
	)
	if err != nil {
		return core.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.Project{}, fmt.Errorf("project id: %w", err)
	}
	if p.Expenses == nil {
		p.Expenses = []core.ProjectExpense{}
	}
	return p, nil
}

func (r *SQLiteRepository) exists(ctx context.Context, table string, id int64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if err != nil {
		return notFound(err, table, id)
	}
	return nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	if err := r.exists(ctx, "clients", p.ClientID); err != nil {
		return core.Project{}, err
	}
	return insertProject(ctx, r.db, p, r.now())
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	projects, err := r.loadProjects(ctx, `WHERE p.id = ?`, id)
	if err != nil {
		return core.Project{}, err
	}
	if len(projects) == 0 {
		return core.Project{}, fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}
	return projects[0], nil
}

func (r *SQLiteRepository) SetProjectPickedUp(ctx context.Context, id int64, pickedUp bool) (core.Project, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET is_picked_up = ? WHERE id = ?`, boolToInt(pickedUp), id)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project %d: %w", id, err)
	}
	if err := requireRow(res, "project", id); err != nil {
		return core.Project{}, err
	}
	return r.GetProject(ctx, id)
}

func (r *SQLiteRepository) AddProjectExpense(ctx context.Context, e core.ProjectExpense) (core.ProjectExpense, error) {
	if e.Date.IsZero() {
		e.Date = r.now()
	}
	if err := e.Validate(); err != nil {
		return core.ProjectExpense{}, err
	}
	if err := r.exists(ctx, "projects", e.ProjectID); err != nil {
		return core.ProjectExpense{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO project_expenses (project_id, type, amount_cents, date) VALUES (?, ?, ?, ?)`,
		e.ProjectID, e.Type, e.Amount.Cents, formatTime(e.Date),
	)
	if err != nil {
		return core.ProjectExpense{}, fmt.Errorf("insert project expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.ProjectExpense{}, fmt.Errorf("project expense id: %w", err)
	}
	return e, nil
}

// ListProjectBillings pairs every project with its client's payments.
func (r *SQLiteRepository) ListProjectBillings(ctx context.Context) ([]core.ProjectBilling, error) {
	projects, err := r.loadProjects(ctx, ``)
	if err != nil {
		return nil, err
	}
	payments, err := r.loadPayments(ctx, `ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	byClient := map[int64][]core.Payment{}
	for _, p := range payments {
		byClient[p.ClientID] = append(byClient[p.ClientID], p)
	}

	out := make([]core.ProjectBilling, 0, len(projects))
	for _, p := range projects {
		out = append(out, core.ProjectBilling{Project: p, ClientPayments: byClient[p.ClientID]})
	}
	return out, nil
}

// loadProjects returns the projects matched by where (written against alias
// p) with their expenses attached.
func (r *SQLiteRepository) loadProjects(ctx context.Context, where string, args ...any) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.client_id, p.member_name, p.order_type, p.price_cents, p.is_picked_up
		FROM projects p `+where+` ORDER BY p.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []core.Project{}
	for rows.Next() {
		var (
			p         core.Project
			orderType string
			pickedUp  int
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.MemberName, &orderType, &p.Price.Cents, &pickedUp); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.OrderType = core.OrderType(orderType)
		p.IsPickedUp = pickedUp != 0
		p.Expenses = []core.ProjectExpense{}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	if len(projects) == 0 {
		return projects, nil
	}

	expenses, err := r.loadProjectExpenses(ctx, `WHERE e.project_id IN (SELECT p.id FROM projects p `+where+`)`, args...)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if list, ok := expenses[projects[i].ID]; ok {
			projects[i].Expenses = list
		}
	}
	return projects, nil
}

func (r *SQLiteRepository) loadProjectExpenses(ctx context.Context, where string, args ...any) (map[int64][]core.ProjectExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.project_id, e.type, e.amount_cents, e.date FROM project_expenses e `+where+` ORDER BY e.date, e.id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list project expenses: %w", err)
	}
	defer rows.Close()

	out := map[int64][]core.ProjectExpense{}
	for rows.Next() {
		var (
			e    core.ProjectExpense
			date string
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Type, &e.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan project expense: %w", err)
		}
		if e.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out[e.ProjectID] = append(out[e.ProjectID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project expenses: %w", err)
	}
	return out, nil
}
