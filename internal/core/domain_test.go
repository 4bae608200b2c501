package core

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMeasurement() Measurement {
	return Measurement{
		ProjectID: 1, Bust: 90, Waist: 70, Hips: 95, ShirtLength: 60,
		SkirtLength: 100, SleeveLength: 58, SleeveWidth: 30, ShoulderToBust: 25,
	}
}

func TestClientValidate(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		field  string
	}{
		{"ok", Client{Name: "Cohen", Email: "cohen@example.com", Phone: "050 123 4567"}, ""},
		{"ok no contact", Client{Name: "Levi"}, ""},
		{"short name", Client{Name: "A"}, "name"},
		{"bad email", Client{Name: "Cohen", Email: "not-an-email"}, "email"},
		{"bad phone", Client{Name: "Cohen", Phone: "12ab"}, "phone"},
		{"bad project", Client{Name: "Cohen", Projects: []Project{{MemberName: "", OrderType: OrderRental}}}, "projects[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.client.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestClientPatchApply(t *testing.T) {
	orig := Client{ID: 3, Name: "Cohen", Email: "cohen@example.com"}
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	dueP := &due
	name := "  Cohen-Levi "

	got, err := ClientPatch{Name: &name, DueDate: &dueP}.Apply(orig)
	require.NoError(t, err)
	assert.Equal(t, "Cohen-Levi", got.Name)
	assert.Equal(t, "cohen@example.com", got.Email)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.Nil(t, orig.DueDate)

	var cleared *time.Time
	got, err = ClientPatch{DueDate: &cleared}.Apply(got)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)

	bad := "x"
	_, err = ClientPatch{Name: &bad}.Apply(orig)
	assert.True(t, IsValidation(err))
}

func TestProjectValidate(t *testing.T) {
	ok := Project{ClientID: 1, MemberName: "Bride", OrderType: OrderCustomMake, Price: Cents(180000)}
	assert.NoError(t, ok.Validate())

	p := ok
	p.ClientID = 0
	assert.ErrorIs(t, p.Validate(), ErrMissingClient)

	p = ok
	p.OrderType = "SALE"
	assert.ErrorIs(t, p.Validate(), ErrInvalidOrderType)

	p = ok
	p.Price = Cents(-1)
	assert.ErrorIs(t, p.Validate(), ErrInvalidAmount)

	p = ok
	p.Price = Money{}
	assert.NoError(t, p.Validate(), "zero price is allowed")
}

func TestExpenseAndPaymentValidate(t *testing.T) {
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ProjectExpense{ProjectID: 1, Type: "Fabric", Amount: Cents(20000)}.Validate())
	assert.ErrorIs(t, ProjectExpense{Type: "Fabric"}.Validate(), ErrMissingProject)
	assert.ErrorIs(t, ProjectExpense{ProjectID: 1, Type: " "}.Validate(), ErrEmptyExpenseType)

	assert.NoError(t, BusinessExpense{Type: "Rent", Amount: Cents(100), Date: day}.Validate())
	assert.ErrorIs(t, BusinessExpense{Type: "Rent", Date: day}.Validate(), ErrInvalidAmount)
	assert.ErrorIs(t, BusinessExpense{Type: "Rent", Amount: Cents(100)}.Validate(), ErrMissingDate)

	assert.NoError(t, Payment{ClientID: 1, Amount: Cents(100), Date: day}.Validate())
	assert.ErrorIs(t, Payment{Amount: Cents(100), Date: day}.Validate(), ErrMissingClient)
	assert.ErrorIs(t, Payment{ClientID: 1, Date: day}.Validate(), ErrInvalidAmount)
}

func TestMeasurementValidate(t *testing.T) {
	assert.NoError(t, validMeasurement().Validate())

	m := validMeasurement()
	m.Waist = 0
	m.Hips = -3
	m.SleeveWidth = math.NaN()
	err := m.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 3)
	assert.Equal(t, "Waist must be greater than 0", ve.Fields["waist"])
	assert.Equal(t, "Hips must be greater than 0", ve.Fields["hips"])
	assert.Contains(t, ve.Fields, "sleeveWidth")
}

func TestAppointmentValidate(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ok := Appointment{ClientID: 1, Start: start, End: start.Add(time.Hour)}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.End = start
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTimeRange)

	bad = ok
	bad.End = time.Time{}
	assert.ErrorIs(t, bad.Validate(), ErrMissingDate)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", ErrInvalidPeriod)))
	assert.True(t, IsValidation(ErrInvalidAmount))
	assert.False(t, IsValidation(ErrNotFound))
	assert.False(t, IsValidation(errors.New("disk full")))
	assert.False(t, IsValidation(nil))
}
