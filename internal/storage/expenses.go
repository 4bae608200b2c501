package storage

import (
	"context"
	"fmt"

	"atelier/internal/core"
)

func (r *SQLiteRepository) CreateBusinessExpense(ctx context.Context, e core.BusinessExpense) (core.BusinessExpense, error) {
	if err := e.Validate(); err != nil {
		return core.BusinessExpense{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO business_expenses (type, description, amount_cents, date, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Type, e.Description, e.Amount.Cents, formatTime(e.Date), formatTime(r.now()),
	)
	if err != nil {
		return core.BusinessExpense{}, fmt.Errorf("insert business expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.BusinessExpense{}, fmt.Errorf("business expense id: %w", err)
	}
	r.logger.InfoContext(ctx, "Business expense saved to SQLite", "expense_id", e.ID, "amount_cents", e.Amount.Cents)
	return e, nil
}

func (r *SQLiteRepository) GetBusinessExpense(ctx context.Context, id int64) (core.BusinessExpense, error) {
	list, err := r.loadBusinessExpenses(ctx, `WHERE id = ?`, id)
	if err != nil {
		return core.BusinessExpense{}, err
	}
	if len(list) == 0 {
		return core.BusinessExpense{}, fmt.Errorf("business expense %d: %w", id, core.ErrNotFound)
	}
	return list[0], nil
}

// ListBusinessExpenses returns overhead dated inside period, newest first.
func (r *SQLiteRepository) ListBusinessExpenses(ctx context.Context, period core.Period) ([]core.BusinessExpense, error) {
	from, to := periodBounds(period)
	return r.loadBusinessExpenses(ctx, `WHERE date >= ? AND date < ? ORDER BY date DESC, id DESC`, from, to)
}

func (r *SQLiteRepository) loadBusinessExpenses(ctx context.Context, tail string, args ...any) ([]core.BusinessExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, description, amount_cents, date FROM business_expenses `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list business expenses: %w", err)
	}
	defer rows.Close()

	out := []core.BusinessExpense{}
	for rows.Next() {
		var (
			e    core.BusinessExpense
			date string
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Description, &e.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan business expense: %w", err)
		}
		if e.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate business expenses: %w", err)
	}
	return out, nil
}
