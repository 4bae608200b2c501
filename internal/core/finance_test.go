package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gown(clientID, price int64, expenses ...int64) Project {
	p := Project{ClientID: clientID, MemberName: "Bride", OrderType: OrderCustomMake, Price: Cents(price)}
	for _, e := range expenses {
		p.Expenses = append(p.Expenses, ProjectExpense{Type: "Fabric", Amount: Cents(e)})
	}
	return p
}

func paid(clientID int64, amounts ...int64) []Payment {
	var out []Payment
	for _, a := range amounts {
		out = append(out, Payment{ClientID: clientID, Amount: Cents(a)})
	}
	return out
}

func TestCalculateFamilyFinances(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   FamilyFinances
	}{
		{
			name:   "empty family",
			client: Client{},
			want:   FamilyFinances{IsFullyPaid: true},
		},
		{
			name:   "partially paid",
			client: Client{Projects: []Project{gown(1, 180000, 20000)}, Payments: paid(1, 100000)},
			want: FamilyFinances{
				TotalBasePrice: Cents(180000), TotalExpenses: Cents(20000), TotalBill: Cents(200000),
				TotalPaid: Cents(100000), Balance: Cents(100000), IsFullyPaid: false,
			},
		},
		{
			name:   "fully paid",
			client: Client{Projects: []Project{gown(1, 180000)}, Payments: paid(1, 180000)},
			want: FamilyFinances{
				TotalBasePrice: Cents(180000), TotalBill: Cents(180000),
				TotalPaid: Cents(180000), IsFullyPaid: true,
			},
		},
		{
			name:   "overpaid keeps negative balance",
			client: Client{Projects: []Project{gown(1, 100000)}, Payments: paid(1, 150000)},
			want: FamilyFinances{
				TotalBasePrice: Cents(100000), TotalBill: Cents(100000),
				TotalPaid: Cents(150000), Balance: Cents(-50000), IsFullyPaid: true,
			},
		},
		{
			name:   "gown without price or expenses",
			client: Client{Projects: []Project{{ClientID: 1, MemberName: "Sister", OrderType: OrderRental}}},
			want:   FamilyFinances{IsFullyPaid: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateFamilyFinances(tt.client)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.TotalBill.Sub(got.TotalPaid), got.Balance)
		})
	}
}

func TestFamilyFinancesOwedClampsCredit(t *testing.T) {
	f := CalculateFamilyFinances(Client{Projects: []Project{gown(1, 100000)}, Payments: paid(1, 150000)})
	assert.Equal(t, Money{}, f.Owed())

	f = CalculateFamilyFinances(Client{Projects: []Project{gown(1, 100000)}, Payments: paid(1, 40000)})
	assert.Equal(t, Cents(60000), f.Owed())
}

func TestCalculateFamilyFinancesIsOrderIndependent(t *testing.T) {
	a := Client{
		Projects: []Project{gown(1, 180000, 5000, 2500), gown(1, 90000), gown(1, 1, 3)},
		Payments: paid(1, 1000, 77777, 33),
	}
	b := Client{
		Projects: []Project{a.Projects[2], a.Projects[0], a.Projects[1]},
		Payments: []Payment{a.Payments[1], a.Payments[2], a.Payments[0]},
	}
	assert.Equal(t, CalculateFamilyFinances(a), CalculateFamilyFinances(b))
}

func TestCalculateGlobalFinances(t *testing.T) {
	// Client 1 owes 500, client 2 is paid in full, client 3 is overpaid by 300.
	c1 := paid(1, 150000)
	c2 := paid(2, 100000)
	c3 := paid(3, 80000)
	projects := []ProjectBilling{
		{Project: gown(1, 180000, 20000), ClientPayments: c1},
		{Project: gown(2, 100000), ClientPayments: c2},
		{Project: gown(3, 50000), ClientPayments: c3},
		{Project: gown(1, 0), ClientPayments: c1},
	}
	projects[0].Project.Price = Cents(130000)
	periodPayments := append(append([]Payment{}, c1...), c2...)
	expenses := []BusinessExpense{{Type: "Rent", Amount: Cents(40000)}, {Type: "Thread", Amount: Cents(500)}}

	g := CalculateGlobalFinances(projects, periodPayments, expenses)

	assert.Equal(t, Cents(250000), g.TotalIncome)
	assert.Equal(t, Cents(40500), g.TotalInternalExpenses)
	assert.Equal(t, Cents(209500), g.NetProfit)
	assert.Equal(t, Money{}, g.TotalOwed)
	require.Len(t, g.Clients, 3)
	assert.Equal(t, ClientBalance{ClientID: 1, Bill: Cents(150000), Paid: Cents(150000)}, g.Clients[0])
	assert.Equal(t, int64(3), g.Clients[2].ClientID)
	assert.Equal(t, Cents(-30000), g.Clients[2].Bill.Sub(g.Clients[2].Paid))
	assert.Equal(t, Money{}, g.Clients[2].Owed())
}

func TestGlobalTotalOwedIgnoresCredit(t *testing.T) {
	projects := []ProjectBilling{
		{Project: gown(1, 100000), ClientPayments: paid(1, 50000)},  // owes 500
		{Project: gown(2, 100000), ClientPayments: paid(2, 100000)}, // paid in full
		{Project: gown(3, 100000), ClientPayments: paid(3, 130000)}, // overpaid by 300
	}
	g := CalculateGlobalFinances(projects, nil, nil)
	assert.Equal(t, Cents(50000), g.TotalOwed)
}

func TestGlobalPaymentsCountedOncePerClient(t *testing.T) {
	pays := paid(7, 100000)
	projects := []ProjectBilling{
		{Project: gown(7, 80000), ClientPayments: pays},
		{Project: gown(7, 80000), ClientPayments: pays},
	}
	g := CalculateGlobalFinances(projects, nil, nil)
	require.Len(t, g.Clients, 1)
	assert.Equal(t, Cents(160000), g.Clients[0].Bill)
	assert.Equal(t, Cents(100000), g.Clients[0].Paid)
	assert.Equal(t, Cents(60000), g.TotalOwed)
}

func TestGlobalFinancesEmpty(t *testing.T) {
	g := CalculateGlobalFinances(nil, nil, nil)
	assert.Equal(t, Money{}, g.NetProfit)
	assert.Equal(t, Money{}, g.TotalOwed)
	assert.NotNil(t, g.Clients)
	assert.Empty(t, g.Clients)
}

func TestClassifyOutstanding(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	owing := func(id int64, due *time.Time) Client {
		return Client{ID: id, DueDate: due, Projects: []Project{gown(id, 100000)}, Payments: paid(id, 40000)}
	}
	settled := Client{ID: 9, DueDate: &past, Projects: []Project{gown(9, 100000)}, Payments: paid(9, 100000)}
	credit := Client{ID: 10, DueDate: &past, Projects: []Project{gown(10, 100000)}, Payments: paid(10, 120000)}

	red, general := ClassifyOutstanding([]Client{owing(1, &past), owing(2, &future), owing(3, nil), settled, credit}, now)

	require.Len(t, red, 1)
	assert.Equal(t, int64(1), red[0].Client.ID)
	assert.Equal(t, Cents(60000), red[0].Owed)

	require.Len(t, general, 2)
	assert.Equal(t, int64(2), general[0].Client.ID)
	assert.Equal(t, int64(3), general[1].Client.ID)
}

func TestClassifyOutstandingDueNowIsNotOverdue(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	c := Client{ID: 1, DueDate: &now, Projects: []Project{gown(1, 100)}}
	red, general := ClassifyOutstanding([]Client{c}, now)
	assert.Empty(t, red)
	assert.Len(t, general, 1)

	red, general = ClassifyOutstanding(nil, now)
	assert.NotNil(t, red)
	assert.NotNil(t, general)
}

func TestPickupBalanceDue(t *testing.T) {
	inMay := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	inJune := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clients := []Client{
		{ID: 1, DueDate: &inMay, Projects: []Project{gown(1, 100000)}, Payments: paid(1, 30000)},
		{ID: 2, DueDate: &inMay, Projects: []Project{gown(2, 100000)}, Payments: paid(2, 150000)},
		{ID: 3, DueDate: &inJune, Projects: []Project{gown(3, 100000)}},
		{ID: 4, Projects: []Project{gown(4, 100000)}},
	}
	assert.Equal(t, Cents(70000), PickupBalanceDue(clients, MonthPeriod(2025, 5, time.UTC)))
	assert.Equal(t, Cents(170000), PickupBalanceDue(clients, AllTimePeriod()))
}
