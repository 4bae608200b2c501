package core

import (
	"fmt"
	"time"
)

// LedgerKind distinguishes money in from money out in the exported ledger.
type LedgerKind string

const (
	LedgerPayment LedgerKind = "payment"
	LedgerExpense LedgerKind = "expense"
)

func (k LedgerKind) Valid() bool {
	return k == LedgerPayment || k == LedgerExpense
}

// LedgerEntry is one row of the bookkeeping ledger kept outside the app.
type LedgerEntry struct {
	Kind   LedgerKind
	ID     int64
	Date   time.Time
	Amount Money
	// Party is the paying family for payments and the expense type for overhead.
	Party  string
	Method string
	Note   string
}

// SignedAmount is positive for income and negative for overhead.
func (e LedgerEntry) SignedAmount() Money {
	if e.Kind == LedgerExpense {
		return Money{}.Sub(e.Amount)
	}
	return e.Amount
}

// Reference identifies the source record, e.g. "payment-12".
func (e LedgerEntry) Reference() string {
	return fmt.Sprintf("%s-%d", e.Kind, e.ID)
}

func PaymentLedgerEntry(p Payment, clientName string) LedgerEntry {
	return LedgerEntry{
		Kind:   LedgerPayment,
		ID:     p.ID,
		Date:   p.Date,
		Amount: p.Amount,
		Party:  clientName,
		Method: p.Method,
		Note:   p.Note,
	}
}

func ExpenseLedgerEntry(e BusinessExpense) LedgerEntry {
	return LedgerEntry{
		Kind:   LedgerExpense,
		ID:     e.ID,
		Date:   e.Date,
		Amount: e.Amount,
		Party:  e.Type,
		Note:   e.Description,
	}
}
