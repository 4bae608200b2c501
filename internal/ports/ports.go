// Package ports declares the storage and outbound interfaces the services
// depend on. The sqlite repository and the in-memory store both implement
// Store; the Google Sheets client implements LedgerWriter.
package ports

import (
	"context"
	"time"

	"atelier/internal/core"
)

type (
	ClientStore interface {
		// CreateClient stores the client and any initial projects atomically.
		CreateClient(ctx context.Context, c core.Client) (core.Client, error)
		// GetClient loads a client with projects (expenses, measurements),
		// payments and appointments.
		GetClient(ctx context.Context, id int64) (core.Client, error)
		// ListClients returns every client with projects, project expenses
		// and payments, ordered by name.
		ListClients(ctx context.Context) ([]core.Client, error)
		UpdateClient(ctx context.Context, c core.Client) (core.Client, error)
	}

	ProjectStore interface {
		CreateProject(ctx context.Context, p core.Project) (core.Project, error)
		GetProject(ctx context.Context, id int64) (core.Project, error)
		SetProjectPickedUp(ctx context.Context, id int64, pickedUp bool) (core.Project, error)
		AddProjectExpense(ctx context.Context, e core.ProjectExpense) (core.ProjectExpense, error)
		// ListProjectBillings returns every project with its expenses and the
		// full payment history of its client.
		ListProjectBillings(ctx context.Context) ([]core.ProjectBilling, error)
	}

	PaymentStore interface {
		RecordPayment(ctx context.Context, p core.Payment) (core.Payment, error)
		GetPayment(ctx context.Context, id int64) (core.Payment, error)
		ListPayments(ctx context.Context, period core.Period) ([]core.Payment, error)
	}

	ExpenseStore interface {
		CreateBusinessExpense(ctx context.Context, e core.BusinessExpense) (core.BusinessExpense, error)
		GetBusinessExpense(ctx context.Context, id int64) (core.BusinessExpense, error)
		ListBusinessExpenses(ctx context.Context, period core.Period) ([]core.BusinessExpense, error)
	}

	MeasurementStore interface {
		CreateMeasurement(ctx context.Context, m core.Measurement) (core.Measurement, error)
		UpdateMeasurement(ctx context.Context, m core.Measurement) (core.Measurement, error)
		DeleteMeasurement(ctx context.Context, id int64) error
	}

	AppointmentStore interface {
		// FindOrCreateService returns the service with this name, creating an
		// active one with defaultDuration minutes when none exists.
		FindOrCreateService(ctx context.Context, name string, defaultDuration int) (core.Service, error)
		CreateAppointment(ctx context.Context, a core.Appointment) (core.Appointment, error)
		// GetAppointment loads the appointment with its client and service.
		GetAppointment(ctx context.Context, id int64) (core.Appointment, error)
		// ListAppointments returns scheduled appointments ordered by start.
		ListAppointments(ctx context.Context) ([]core.Appointment, error)
		RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) (core.Appointment, error)
		MarkConfirmationSent(ctx context.Context, id int64) error
		CancelAppointment(ctx context.Context, id int64) error
	}

	// Store is everything the HTTP server and CLI need from a backend.
	Store interface {
		ClientStore
		ProjectStore
		PaymentStore
		ExpenseStore
		MeasurementStore
		AppointmentStore
		Close() error
	}

	// LedgerSource exposes payments and overhead awaiting export.
	LedgerSource interface {
		LedgerEntry(ctx context.Context, kind core.LedgerKind, id int64) (core.LedgerEntry, error)
		PendingLedgerEntries(ctx context.Context, limit int) ([]core.LedgerEntry, error)
		MarkLedgerSynced(ctx context.Context, kind core.LedgerKind, id int64, ref string) error
		MarkLedgerSyncError(ctx context.Context, kind core.LedgerKind, id int64) error
	}

	// LedgerWriter appends entries to the external bookkeeping ledger.
	LedgerWriter interface {
		AppendLedgerEntry(ctx context.Context, e core.LedgerEntry) (ref string, err error)
	}
)
