package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"atelier/internal/core"
	"atelier/internal/services"
)

const dateLayout = "2006-01-02"

// day prints t as a calendar date in loc.
func day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// FormatReport prints a finance report as aligned plain text, with dates in loc.
func FormatReport(w io.Writer, r services.FinanceReport, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n\n", r.Title)
	fmt.Fprintf(tw, "\tPeriod\tLifetime\n")
	fmt.Fprintf(tw, "Income\t%s\t%s\n", r.Summary.TotalIncome, r.Lifetime.TotalIncome)
	fmt.Fprintf(tw, "Overhead\t%s\t%s\n", r.Summary.TotalInternalExpenses, r.Lifetime.TotalInternalExpenses)
	fmt.Fprintf(tw, "Net profit\t%s\t%s\n", r.Summary.NetProfit, r.Lifetime.NetProfit)
	fmt.Fprintf(tw, "Owed\t%s\t%s\n", r.Summary.TotalOwed, r.Lifetime.TotalOwed)
	fmt.Fprintf(tw, "Pickup balance due\t%s\t\n", r.PickupBalanceDue)

	writeOutstanding(tw, "Red flags (past due date)", r.RedFlags, loc)
	writeOutstanding(tw, "Still owed", r.GeneralOwed, loc)

	if len(r.Payments) > 0 {
		fmt.Fprintf(tw, "\nPayments\n")
		for _, p := range r.Payments {
			fmt.Fprintf(tw, "  %s\tclient %d\t%s\t%s\n", day(p.Date, loc), p.ClientID, p.Method, p.Amount)
		}
	}
	if len(r.Expenses) > 0 {
		fmt.Fprintf(tw, "\nOverhead\n")
		for _, e := range r.Expenses {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", day(e.Date, loc), e.Type, e.Description, e.Amount)
		}
	}
	return tw.Flush()
}

func writeOutstanding(w io.Writer, title string, list []core.OutstandingClient, loc *time.Location) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, oc := range list {
		due := "-"
		if oc.Client.DueDate != nil {
			due = day(*oc.Client.DueDate, loc)
		}
		fmt.Fprintf(w, "  %s\tdue %s\t%s\n", oc.Client.Name, due, oc.Owed)
	}
}

// FormatFamily prints a family's gowns, payments and bill, with dates in loc.
func FormatFamily(w io.Writer, c core.Client, loc *time.Location) error {
	f := core.CalculateFamilyFinances(c)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s (#%d)\n", c.Name, c.ID)
	if c.DueDate != nil {
		fmt.Fprintf(tw, "Due %s\n", day(*c.DueDate, loc))
	}

	fmt.Fprintf(tw, "\nGowns\n")
	for _, p := range c.Projects {
		picked := ""
		if p.IsPickedUp {
			picked = "picked up"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", p.MemberName, p.OrderType, p.Price, picked)
		for _, e := range p.Expenses {
			fmt.Fprintf(tw, "    + %s\t\t%s\t\n", e.Type, e.Amount)
		}
	}

	fmt.Fprintf(tw, "\nPayments\n")
	for _, p := range c.Payments {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t\n", day(p.Date, loc), p.Method, p.Amount)
	}

	fmt.Fprintf(tw, "\nBill\t%s\n", f.TotalBill)
	fmt.Fprintf(tw, "Paid\t%s\n", f.TotalPaid)
	fmt.Fprintf(tw, "Balance\t%s\n", f.Balance)
	if f.IsFullyPaid {
		fmt.Fprintf(tw, "Fully paid\n")
	}
	return tw.Flush()
}
