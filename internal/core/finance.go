package core

import (
	"sort"
	"time"
)

// FamilyFinances is the bill summary for one family.
type FamilyFinances struct {
	TotalBasePrice Money `json:"totalBasePrice"`
	TotalExpenses  Money `json:"totalExpenses"`
	TotalBill      Money `json:"totalBill"`
	TotalPaid      Money `json:"totalPaid"`
	// Balance is signed; a negative value means the family has credit.
	Balance     Money `json:"balance"`
	IsFullyPaid bool  `json:"isFullyPaid"`
}

// Owed is the outstanding amount, never negative.
func (f FamilyFinances) Owed() Money {
	return f.Balance.NonNegative()
}

// CalculateFamilyFinances sums a family's gowns, gown expenses and payments.
// Nil collections count as empty.
func CalculateFamilyFinances(c Client) FamilyFinances {
	var f FamilyFinances
	for _, p := range c.Projects {
		f.TotalBasePrice = f.TotalBasePrice.Add(p.Price)
		f.TotalExpenses = f.TotalExpenses.Add(sumProjectExpenses(p.Expenses))
	}
	f.TotalPaid = sumPayments(c.Payments)
	f.TotalBill = f.TotalBasePrice.Add(f.TotalExpenses)
	f.Balance = f.TotalBill.Sub(f.TotalPaid)
	f.IsFullyPaid = f.Balance.Cents <= 0
	return f
}

// ProjectBilling is a gown together with every payment its family has made.
type ProjectBilling struct {
	Project        Project
	ClientPayments []Payment
}

// ClientBalance is one family's bucket in the global report.
type ClientBalance struct {
	ClientID int64 `json:"clientId"`
	Bill     Money `json:"bill"`
	Paid     Money `json:"paid"`
}

// Owed is the bucket's outstanding amount, never negative.
func (b ClientBalance) Owed() Money {
	return b.Bill.Sub(b.Paid).NonNegative()
}

// GlobalFinances summarizes a reporting period across all families.
type GlobalFinances struct {
	TotalIncome           Money           `json:"totalIncome"`
	TotalInternalExpenses Money           `json:"totalInternalExpenses"`
	TotalOwed             Money           `json:"totalOwed"`
	NetProfit             Money           `json:"netProfit"`
	Clients               []ClientBalance `json:"clients"`
}

// CalculateGlobalFinances computes income and overhead for the supplied
// (already period-filtered) payments and business expenses, and the money
// still owed across all families in projects. Overpaid families contribute
// zero to TotalOwed; debts are never netted against credits.
func CalculateGlobalFinances(projects []ProjectBilling, payments []Payment, expenses []BusinessExpense) GlobalFinances {
	var g GlobalFinances
	g.TotalIncome = sumPayments(payments)
	for _, e := range expenses {
		g.TotalInternalExpenses = g.TotalInternalExpenses.Add(e.Amount)
	}

	buckets := make(map[int64]*ClientBalance)
	for _, pb := range projects {
		cid := pb.Project.ClientID
		b, ok := buckets[cid]
		if !ok {
			// Payments belong to the family, so they are counted once.
			b = &ClientBalance{ClientID: cid, Paid: sumPayments(pb.ClientPayments)}
			buckets[cid] = b
		}
		b.Bill = b.Bill.Add(pb.Project.Price).Add(sumProjectExpenses(pb.Project.Expenses))
	}

	g.Clients = make([]ClientBalance, 0, len(buckets))
	for _, b := range buckets {
		g.TotalOwed = g.TotalOwed.Add(b.Owed())
		g.Clients = append(g.Clients, *b)
	}
	sort.Slice(g.Clients, func(i, j int) bool { return g.Clients[i].ClientID < g.Clients[j].ClientID })

	g.NetProfit = g.TotalIncome.Sub(g.TotalInternalExpenses)
	return g
}

// OutstandingClient is a family that still owes money.
type OutstandingClient struct {
	Client   Client         `json:"client"`
	Finances FamilyFinances `json:"finances"`
	Owed     Money          `json:"owed"`
}

// ClassifyOutstanding splits families with a positive balance into red flags
// (due date strictly before now) and general owed (due date not passed or
// unknown). Fully paid families appear in neither list.
func ClassifyOutstanding(clients []Client, now time.Time) (redFlags, generalOwed []OutstandingClient) {
	redFlags = []OutstandingClient{}
	generalOwed = []OutstandingClient{}
	for _, c := range clients {
		f := CalculateFamilyFinances(c)
		if f.Balance.Cents <= 0 {
			continue
		}
		oc := OutstandingClient{Client: c, Finances: f, Owed: f.Owed()}
		if c.DueDate != nil && c.DueDate.Before(now) {
			redFlags = append(redFlags, oc)
		} else {
			generalOwed = append(generalOwed, oc)
		}
	}
	return redFlags, generalOwed
}

// PickupBalanceDue is the money still missing from families whose gowns are
// due inside the period. Families without a due date are skipped.
func PickupBalanceDue(clients []Client, period Period) Money {
	var total Money
	for _, c := range clients {
		if c.DueDate == nil || !period.Contains(*c.DueDate) {
			continue
		}
		total = total.Add(CalculateFamilyFinances(c).Owed())
	}
	return total
}

func sumPayments(payments []Payment) Money {
	var total Money
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

func sumProjectExpenses(expenses []ProjectExpense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
