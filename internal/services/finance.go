package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"atelier/internal/core"
	"atelier/internal/ports"
)

// FinanceStore is the read side the finance report needs.
type FinanceStore interface {
	ListPayments(ctx context.Context, period core.Period) ([]core.Payment, error)
	ListBusinessExpenses(ctx context.Context, period core.Period) ([]core.BusinessExpense, error)
	ListProjectBillings(ctx context.Context) ([]core.ProjectBilling, error)
	ListClients(ctx context.Context) ([]core.Client, error)
}

var _ FinanceStore = (ports.Store)(nil)

// FinanceReport is everything the finances page shows for one period.
type FinanceReport struct {
	Title            string                   `json:"title"`
	Period           PeriodInfo               `json:"period"`
	Summary          core.GlobalFinances      `json:"summary"`
	Lifetime         core.GlobalFinances      `json:"lifetime"`
	RedFlags         []core.OutstandingClient `json:"redFlags"`
	GeneralOwed      []core.OutstandingClient `json:"generalOwed"`
	PickupBalanceDue core.Money               `json:"pickupBalanceDue"`
	Payments         []core.Payment           `json:"payments"`
	Expenses         []core.BusinessExpense   `json:"expenses"`
}

type PeriodInfo struct {
	AllTime bool       `json:"allTime"`
	Year    int        `json:"year,omitempty"`
	Month   int        `json:"month,omitempty"`
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`
}

func periodInfo(p core.Period) PeriodInfo {
	if p.AllTime {
		return PeriodInfo{AllTime: true}
	}
	start, end := p.Start, p.End
	return PeriodInfo{Year: p.Year, Month: p.Month, Start: &start, End: &end}
}

type FinanceService struct {
	store  FinanceStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewFinanceService(store FinanceStore, loc *time.Location, logger *slog.Logger) *FinanceService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FinanceService{store: store, loc: loc, now: time.Now, logger: logger}
}

// Report builds the finance report for the month/year selectors. Invalid
// selectors fail with core.ErrInvalidPeriod; any storage failure fails the
// whole report.
func (s *FinanceService) Report(ctx context.Context, month, year string) (FinanceReport, error) {
	now := s.now().In(s.loc)
	period, err := core.ParsePeriod(month, year, now)
	if err != nil {
		return FinanceReport{}, err
	}

	var (
		payments    []core.Payment
		expenses    []core.BusinessExpense
		allPayments []core.Payment
		allExpenses []core.BusinessExpense
		billings    []core.ProjectBilling
		clients     []core.Client
	)
	lifetime := core.AllTimePeriod()
	needLifetime := !period.AllTime

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		payments, err = s.store.ListPayments(gctx, period)
		return wrap(err, "payments")
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListBusinessExpenses(gctx, period)
		return wrap(err, "business expenses")
	})
	if needLifetime {
		g.Go(func() (err error) {
			allPayments, err = s.store.ListPayments(gctx, lifetime)
			return wrap(err, "lifetime payments")
		})
		g.Go(func() (err error) {
			allExpenses, err = s.store.ListBusinessExpenses(gctx, lifetime)
			return wrap(err, "lifetime business expenses")
		})
	}
	g.Go(func() (err error) {
		billings, err = s.store.ListProjectBillings(gctx)
		return wrap(err, "project billings")
	})
	g.Go(func() (err error) {
		clients, err = s.store.ListClients(gctx)
		return wrap(err, "clients")
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load finance data", "error", err)
		return FinanceReport{}, err
	}
	if !needLifetime {
		allPayments, allExpenses = payments, expenses
	}

	redFlags, generalOwed := core.ClassifyOutstanding(clients, now)
	report := FinanceReport{
		Title:            period.Title(),
		Period:           periodInfo(period),
		Summary:          core.CalculateGlobalFinances(billings, payments, expenses),
		Lifetime:         core.CalculateGlobalFinances(billings, allPayments, allExpenses),
		RedFlags:         redFlags,
		GeneralOwed:      generalOwed,
		PickupBalanceDue: core.PickupBalanceDue(clients, period),
		Payments:         nonNil(payments),
		Expenses:         nonNil(expenses),
	}

	s.logger.DebugContext(ctx, "Finance report built",
		"title", report.Title,
		"payments", len(report.Payments),
		"expenses", len(report.Expenses),
		"red_flags", len(redFlags))
	return report, nil
}

func wrap(err error, what string) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
