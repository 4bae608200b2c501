package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerEntries(t *testing.T) {
	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	p := PaymentLedgerEntry(Payment{ID: 12, ClientID: 4, Amount: Cents(50000), Date: day, Method: "Bit"}, "Cohen")
	assert.Equal(t, "payment-12", p.Reference())
	assert.Equal(t, Cents(50000), p.SignedAmount())
	assert.Equal(t, "Cohen", p.Party)

	e := ExpenseLedgerEntry(BusinessExpense{ID: 3, Type: "Rent", Description: "March", Amount: Cents(400000), Date: day})
	assert.Equal(t, "expense-3", e.Reference())
	assert.Equal(t, Cents(-400000), e.SignedAmount())
	assert.True(t, e.Kind.Valid())
	assert.False(t, LedgerKind("refund").Valid())
}

func TestCalendarEvents(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	appts := []Appointment{
		{ID: 1, ClientID: 1, Start: start, End: start.Add(time.Hour), Status: StatusScheduled, Service: &Service{Name: "Fitting"}},
		{ID: 2, ClientID: 1, Start: start, End: start.Add(time.Hour), Status: StatusCancelled},
		{ID: 3, ClientID: 2, Start: start, End: start.Add(30 * time.Minute), Status: StatusScheduled},
	}
	events := CalendarEvents(appts)
	if assert.Len(t, events, 2) {
		assert.Equal(t, "Fitting", events[0].Title)
		assert.Equal(t, "Appointment", events[1].Title)
		assert.Equal(t, int64(3), events[1].Resource.ID)
	}
}

func TestAppointmentReschedule(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := Appointment{ID: 1, ClientID: 1, Start: start, End: start.Add(time.Hour), DurationMinutes: 60, Status: StatusScheduled}

	moved, err := a.Reschedule(start.Add(24*time.Hour), start.Add(24*time.Hour+90*time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, 90, moved.DurationMinutes)

	_, err = a.Reschedule(start, start)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	a.Status = StatusCancelled
	_, err = a.Reschedule(start, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}
