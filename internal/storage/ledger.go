package storage

import (
	"context"
	"fmt"

	"atelier/internal/core"
)

const (
	syncPending = "pending"
	syncSynced  = "synced"
	syncError   = "error"
)

func ledgerTable(kind core.LedgerKind) (string, error) {
	switch kind {
	case core.LedgerPayment:
		return "payments", nil
	case core.LedgerExpense:
		return "business_expenses", nil
	}
	return "", fmt.Errorf("unknown ledger kind %q", kind)
}

// LedgerEntry loads a single payment or business expense as a ledger row.
func (r *SQLiteRepository) LedgerEntry(ctx context.Context, kind core.LedgerKind, id int64) (core.LedgerEntry, error) {
	switch kind {
	case core.LedgerPayment:
		var name string
		p, err := r.GetPayment(ctx, id)
		if err != nil {
			return core.LedgerEntry{}, err
		}
		if err := r.db.QueryRowContext(ctx, `SELECT name FROM clients WHERE id = ?`, p.ClientID).Scan(&name); err != nil {
			return core.LedgerEntry{}, notFound(err, "client", p.ClientID)
		}
		return core.PaymentLedgerEntry(p, name), nil
	case core.LedgerExpense:
		e, err := r.GetBusinessExpense(ctx, id)
		if err != nil {
			return core.LedgerEntry{}, err
		}
		return core.ExpenseLedgerEntry(e), nil
	}
	return core.LedgerEntry{}, fmt.Errorf("unknown ledger kind %q", kind)
}

// PendingLedgerEntries returns up to limit unexported payments and expenses.
// Entries that have never been tried come first, oldest first; entries whose
// last export failed follow, so the sweep keeps retrying them.
func (r *SQLiteRepository) PendingLedgerEntries(ctx context.Context, limit int) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT 'payment', p.id, p.date, p.amount_cents, c.name, p.method, p.note, p.sync_status = ? AS retry
		FROM payments p JOIN clients c ON c.id = p.client_id
		WHERE p.sync_status IN (?, ?)
		UNION ALL
		SELECT 'expense', e.id, e.date, e.amount_cents, e.type, '', e.description, e.sync_status = ? AS retry
		FROM business_expenses e
		WHERE e.sync_status IN (?, ?)
		ORDER BY 8, 3, 1, 2
		LIMIT ?`,
		syncError, syncPending, syncError,
		syncError, syncPending, syncError,
		limit)
	if err != nil {
		return nil, fmt.Errorf("get pending ledger entries: %w", err)
	}
	defer rows.Close()

	out := []core.LedgerEntry{}
	for rows.Next() {
		var (
			e          core.LedgerEntry
			kind, date string
			retry      int
		)
		if err := rows.Scan(&kind, &e.ID, &date, &e.Amount.Cents, &e.Party, &e.Method, &e.Note, &retry); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = core.LedgerKind(kind)
		if e.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkLedgerSynced(ctx context.Context, kind core.LedgerKind, id int64, ref string) error {
	table, err := ledgerTable(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET sync_status = ?, sheets_ref = ?, synced_at = ? WHERE id = ?`,
		syncSynced, ref, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("mark %s %d synced: %w", kind, id, err)
	}
	if err := requireRow(res, string(kind), id); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Ledger entry marked as synced", "kind", kind, "id", id, "ref", ref)
	return nil
}

func (r *SQLiteRepository) MarkLedgerSyncError(ctx context.Context, kind core.LedgerKind, id int64) error {
	table, err := ledgerTable(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET sync_status = ? WHERE id = ?`, syncError, id)
	if err != nil {
		return fmt.Errorf("mark %s %d sync error: %w", kind, id, err)
	}
	if err := requireRow(res, string(kind), id); err != nil {
		return err
	}
	r.logger.WarnContext(ctx, "Ledger entry marked with sync error", "kind", kind, "id", id)
	return nil
}
