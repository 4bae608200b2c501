package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core"
)

var (
	jan10 = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	feb01 = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "atelier.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	repo.now = func() time.Time { return jan10 }
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedClient(t *testing.T, repo *SQLiteRepository, name string, due *time.Time, prices ...int64) core.Client {
	t.Helper()
	c := core.Client{Name: name, Email: "family@example.com", DueDate: due}
	for _, p := range prices {
		c.Projects = append(c.Projects, core.Project{MemberName: "Bride", OrderType: core.OrderCustomMake, Price: core.Cents(p)})
	}
	created, err := repo.CreateClient(context.Background(), c)
	require.NoError(t, err)
	return created
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	created := seedClient(t, repo, "Cohen", &due, 180000, 90000)
	require.Len(t, created.Projects, 2)
	assert.NotZero(t, created.ID)
	assert.Equal(t, created.ID, created.Projects[1].ClientID)

	_, err := repo.AddProjectExpense(ctx, core.ProjectExpense{ProjectID: created.Projects[0].ID, Type: "Dying", Amount: core.Cents(20000)})
	require.NoError(t, err)
	_, err = repo.RecordPayment(ctx, core.Payment{ClientID: created.ID, Amount: core.Cents(100000), Date: jan10, Method: "Cash"})
	require.NoError(t, err)

	got, err := repo.GetClient(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cohen", got.Name)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	require.Len(t, got.Projects, 2)
	require.Len(t, got.Projects[0].Expenses, 1)
	assert.True(t, got.Projects[0].Expenses[0].Date.Equal(jan10))
	require.Len(t, got.Payments, 1)

	f := core.CalculateFamilyFinances(got)
	assert.Equal(t, core.Cents(290000), f.TotalBill)
	assert.Equal(t, core.Cents(190000), f.Balance)

	_, err = repo.GetClient(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateClientRejectsInvalidProject(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateClient(ctx, core.Client{Name: "Levi", Projects: []core.Project{{MemberName: "Bride", OrderType: "SALE"}}})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	clients, err := repo.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestUpdateClient(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := seedClient(t, repo, "Cohen", nil)

	c.Phone = "0501234567"
	c.DueDate = &feb01
	updated, err := repo.UpdateClient(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "0501234567", updated.Phone)
	require.NotNil(t, updated.DueDate)

	c.ID = 404
	_, err = repo.UpdateClient(ctx, c)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListClientsAttachesRelations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	b := seedClient(t, repo, "Levi", nil, 50000)
	a := seedClient(t, repo, "Amar", nil)
	_, err := repo.RecordPayment(ctx, core.Payment{ClientID: b.ID, Amount: core.Cents(100), Date: jan10})
	require.NoError(t, err)

	clients, err := repo.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, a.ID, clients[0].ID, "ordered by name")
	assert.Empty(t, clients[0].Projects)
	assert.NotNil(t, clients[0].Payments)
	assert.Len(t, clients[1].Projects, 1)
	assert.Len(t, clients[1].Payments, 1)
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := seedClient(t, repo, "Cohen", nil)

	p, err := repo.CreateProject(ctx, core.Project{ClientID: c.ID, MemberName: "Mother", OrderType: core.OrderRental, Price: core.Cents(40000)})
	require.NoError(t, err)

	p, err = repo.SetProjectPickedUp(ctx, p.ID, true)
	require.NoError(t, err)
	assert.True(t, p.IsPickedUp)

	_, err = repo.CreateProject(ctx, core.Project{ClientID: 999, MemberName: "X", OrderType: core.OrderRental})
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.SetProjectPickedUp(ctx, 999, true)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.AddProjectExpense(ctx, core.ProjectExpense{ProjectID: 999, Type: "Fabric", Amount: core.Cents(1)})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListProjectBillings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := seedClient(t, repo, "Cohen", nil, 100000, 50000)
	seedClient(t, repo, "Levi", nil, 70000)
	_, err := repo.RecordPayment(ctx, core.Payment{ClientID: c.ID, Amount: core.Cents(30000), Date: jan10})
	require.NoError(t, err)

	billings, err := repo.ListProjectBillings(ctx)
	require.NoError(t, err)
	require.Len(t, billings, 3)

	g := core.CalculateGlobalFinances(billings, nil, nil)
	assert.Equal(t, core.Cents(190000), g.TotalOwed)
}

func TestPeriodFiltering(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := seedClient(t, repo, "Cohen", nil)

	endOfJan := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
	for _, d := range []time.Time{jan10, endOfJan, feb01} {
		_, err := repo.RecordPayment(ctx, core.Payment{ClientID: c.ID, Amount: core.Cents(100), Date: d})
		require.NoError(t, err)
		_, err = repo.CreateBusinessExpense(ctx, core.BusinessExpense{Type: "Rent", Amount: core.Cents(100), Date: d})
		require.NoError(t, err)
	}

	jan := core.MonthPeriod(2025, 1, time.UTC)
	payments, err := repo.ListPayments(ctx, jan)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	expenses, err := repo.ListBusinessExpenses(ctx, jan)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.True(t, expenses[0].Date.Equal(endOfJan), "newest first")

	all, err := repo.ListPayments(ctx, core.AllTimePeriod())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// February in UTC+2 starts at 22:00 UTC on January 31.
	febLocal := core.MonthPeriod(2025, 2, time.FixedZone("IST", 2*60*60))
	payments, err = repo.ListPayments(ctx, febLocal)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestMeasurements(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := seedClient(t, repo, "Cohen", nil, 100000)
	pid := c.Projects[0].ID

	m := core.Measurement{ProjectID: pid, Bust: 90, Waist: 70, Hips: 95, ShirtLength: 60, SkirtLength: 100, SleeveLength: 58, SleeveWidth: 30, ShoulderToBust: 25}
	created, err := repo.CreateMeasurement(ctx, m)
	require.NoError(t, err)

	updated, err := repo.UpdateMeasurement(ctx, core.Measurement{ID: created.ID, Bust: 90, Waist: 68.5, Hips: 95, ShirtLength: 60, SkirtLength: 100, SleeveLength: 58, SleeveWidth: 30, ShoulderToBust: 25})
	require.NoError(t, err)
	assert.Equal(t, 68.5, updated.Waist)
	assert.Equal(t, pid, updated.ProjectID)

	got, err := repo.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Projects[0].Measurements, 1)

	require.NoError(t, repo.DeleteMeasurement(ctx, created.ID))
	assert.ErrorIs(t, repo.DeleteMeasurement(ctx, created.ID), core.ErrNotFound)

	m.Bust = 0
	_, err = repo.CreateMeasurement(ctx, m)
	assert.True(t, core.IsValidation(err))
}

func TestAppointments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := seedClient(t, repo, "Cohen", nil)

	svc, err := repo.FindOrCreateService(ctx, "First Fitting", 45)
	require.NoError(t, err)
	again, err := repo.FindOrCreateService(ctx, " First Fitting ", 90)
	require.NoError(t, err)
	assert.Equal(t, svc.ID, again.ID)
	assert.Equal(t, 45, again.DefaultDurationMin)

	start := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	a, err := repo.CreateAppointment(ctx, core.Appointment{
		ClientID: c.ID, ServiceID: svc.ID, Start: start, End: start.Add(45 * time.Minute), DurationMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusScheduled, a.Status)
	require.NotNil(t, a.Service)
	assert.Equal(t, "First Fitting", a.Service.Name)
	require.NotNil(t, a.Client)
	assert.Equal(t, "family@example.com", a.Client.Email)

	moved, err := repo.RescheduleAppointment(ctx, a.ID, start.Add(time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 60, moved.DurationMinutes)

	require.NoError(t, repo.MarkConfirmationSent(ctx, a.ID))
	got, err := repo.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.ConfirmationSent)
	assert.True(t, got.Start.Equal(start.Add(time.Hour)))

	list, err := repo.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.CancelAppointment(ctx, a.ID))
	assert.ErrorIs(t, repo.CancelAppointment(ctx, a.ID), core.ErrAlreadyCancelled)
	list, err = repo.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.RescheduleAppointment(ctx, a.ID, start, start.Add(time.Hour))
	assert.ErrorIs(t, err, core.ErrAlreadyCancelled)
}

func TestLedgerSync(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := seedClient(t, repo, "Cohen", nil)

	pay, err := repo.RecordPayment(ctx, core.Payment{ClientID: c.ID, Amount: core.Cents(50000), Date: feb01, Method: "Bit"})
	require.NoError(t, err)
	exp, err := repo.CreateBusinessExpense(ctx, core.BusinessExpense{Type: "Rent", Description: "January", Amount: core.Cents(400000), Date: jan10})
	require.NoError(t, err)

	pending, err := repo.PendingLedgerEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, core.LedgerExpense, pending[0].Kind, "oldest first")
	assert.Equal(t, core.LedgerPayment, pending[1].Kind)
	assert.Equal(t, "Cohen", pending[1].Party)

	entry, err := repo.LedgerEntry(ctx, core.LedgerPayment, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bit", entry.Method)

	require.NoError(t, repo.MarkLedgerSynced(ctx, core.LedgerPayment, pay.ID, "Ledger!A2:G2"))
	require.NoError(t, repo.MarkLedgerSyncError(ctx, core.LedgerExpense, exp.ID))

	pending, err = repo.PendingLedgerEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "failed exports stay in the sweep")
	assert.Equal(t, core.LedgerExpense, pending[0].Kind)
	assert.Equal(t, exp.ID, pending[0].ID)

	// A never-tried entry is swept before an older failed one.
	later, err := repo.RecordPayment(ctx, core.Payment{ClientID: c.ID, Amount: core.Cents(1000), Date: feb01.AddDate(0, 0, 5)})
	require.NoError(t, err)
	pending, err = repo.PendingLedgerEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, later.ID, pending[0].ID)

	require.NoError(t, repo.MarkLedgerSynced(ctx, core.LedgerPayment, later.ID, "Ledger!A3:G3"))
	require.NoError(t, repo.MarkLedgerSynced(ctx, core.LedgerExpense, exp.ID, "Ledger!A4:G4"))
	pending, err = repo.PendingLedgerEntries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.MarkLedgerSynced(ctx, core.LedgerPayment, 999, "x"), core.ErrNotFound)
	assert.Error(t, repo.MarkLedgerSynced(ctx, core.LedgerKind("refund"), 1, "x"))
}
