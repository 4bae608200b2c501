package storage

import (
	"context"
	"fmt"

	"atelier/internal/core"
)

func (r *SQLiteRepository) RecordPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	if err := r.exists(ctx, "clients", p.ClientID); err != nil {
		return core.Payment{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (client_id, amount_cents, date, method, note, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ClientID, p.Amount.Cents, formatTime(p.Date), p.Method, p.Note, formatTime(r.now()),
	)
	if err != nil {
		return core.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.Payment{}, fmt.Errorf("payment id: %w", err)
	}
	r.logger.InfoContext(ctx, "Payment saved to SQLite", "payment_id", p.ID, "client_id", p.ClientID, "amount_cents", p.Amount.Cents)
	return p, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.Payment, error) {
	payments, err := r.loadPayments(ctx, `WHERE id = ?`, id)
	if err != nil {
		return core.Payment{}, err
	}
	if len(payments) == 0 {
		return core.Payment{}, fmt.Errorf("payment %d: %w", id, core.ErrNotFound)
	}
	return payments[0], nil
}

// ListPayments returns payments dated inside period, oldest first.
func (r *SQLiteRepository) ListPayments(ctx context.Context, period core.Period) ([]core.Payment, error) {
	from, to := periodBounds(period)
	return r.loadPayments(ctx, `WHERE date >= ? AND date < ? ORDER BY date, id`, from, to)
}

func (r *SQLiteRepository) loadPayments(ctx context.Context, tail string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, client_id, amount_cents, date, method, note FROM payments `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []core.Payment{}
	for rows.Next() {
		var (
			p    core.Payment
			date string
		)
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Amount.Cents, &date, &p.Method, &p.Note); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}
