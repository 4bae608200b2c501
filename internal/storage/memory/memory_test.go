package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/core"
)

func TestStoreFamilyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	c, err := s.CreateClient(ctx, core.Client{Name: "Cohen", Projects: []core.Project{
		{MemberName: "Bride", OrderType: core.OrderCustomMake, Price: core.Cents(180000)},
	}})
	require.NoError(t, err)
	require.Len(t, c.Projects, 1)

	_, err = s.AddProjectExpense(ctx, core.ProjectExpense{ProjectID: c.Projects[0].ID, Type: "Dying", Amount: core.Cents(20000)})
	require.NoError(t, err)
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err = s.RecordPayment(ctx, core.Payment{ClientID: c.ID, Amount: core.Cents(100000), Date: day})
	require.NoError(t, err)

	got, err := s.GetClient(ctx, c.ID)
	require.NoError(t, err)
	f := core.CalculateFamilyFinances(got)
	assert.Equal(t, core.Cents(200000), f.TotalBill)
	assert.Equal(t, core.Cents(100000), f.Balance)

	billings, err := s.ListProjectBillings(ctx)
	require.NoError(t, err)
	require.Len(t, billings, 1)
	assert.Len(t, billings[0].ClientPayments, 1)

	jan, err := s.ListPayments(ctx, core.MonthPeriod(2025, 1, time.UTC))
	require.NoError(t, err)
	assert.Len(t, jan, 1)
	feb, err := s.ListPayments(ctx, core.MonthPeriod(2025, 2, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, feb)
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetClient(ctx, 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.RecordPayment(ctx, core.Payment{ClientID: 1, Amount: core.Cents(1), Date: time.Now()})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteMeasurement(ctx, 3), core.ErrNotFound)
	assert.ErrorIs(t, s.CancelAppointment(ctx, 3), core.ErrNotFound)
}

func TestStoreAppointments(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, err := s.CreateClient(ctx, core.Client{Name: "Levi", Email: "levi@example.com"})
	require.NoError(t, err)

	svc, err := s.FindOrCreateService(ctx, "Pickup", 30)
	require.NoError(t, err)
	same, err := s.FindOrCreateService(ctx, "Pickup", 60)
	require.NoError(t, err)
	assert.Equal(t, svc, same)

	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	a, err := s.CreateAppointment(ctx, core.Appointment{ClientID: c.ID, ServiceID: svc.ID, Start: start, End: start.Add(30 * time.Minute), DurationMinutes: 30})
	require.NoError(t, err)
	require.NotNil(t, a.Client)
	assert.Equal(t, "levi@example.com", a.Client.Email)
	assert.Equal(t, "Pickup", a.Service.Name)

	require.NoError(t, s.CancelAppointment(ctx, a.ID))
	list, err := s.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
