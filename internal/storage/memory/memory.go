// Package memory is a map-backed implementation of ports.Store for local
// development and tests. Nothing is persisted.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"atelier/internal/core"
	"atelier/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	nextID       int64
	clients      map[int64]core.Client
	projects     map[int64]core.Project
	expenses     map[int64]core.ProjectExpense
	measurements map[int64]core.Measurement
	payments     map[int64]core.Payment
	overhead     map[int64]core.BusinessExpense
	services     map[string]core.Service
	appointments map[int64]core.Appointment
}

func New() *Store {
	return &Store{
		now:          time.Now,
		clients:      map[int64]core.Client{},
		projects:     map[int64]core.Project{},
		expenses:     map[int64]core.ProjectExpense{},
		measurements: map[int64]core.Measurement{},
		payments:     map[int64]core.Payment{},
		overhead:     map[int64]core.BusinessExpense{},
		services:     map[string]core.Service{},
		appointments: map[int64]core.Appointment{},
	}
}

func (s *Store) Close() error { return nil }
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
}

func (s *Store) CreateClient(_ context.Context, c core.Client) (core.Client, error) {
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	projects := make([]core.Project, 0, len(c.Projects))
	for _, p := range c.Projects {
		p.ID = s.id()
		p.ClientID = c.ID
		p.Expenses = []core.ProjectExpense{}
		s.projects[p.ID] = p
		projects = append(projects, p)
	}
	c.Projects, c.Payments, c.Appointments = nil, nil, nil
	s.clients[c.ID] = c

	c.Projects = projects
	c.Payments = []core.Payment{}
	return c, nil
}

func (s *Store) GetClient(_ context.Context, id int64) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return core.Client{}, notFound("client", id)
	}
	c = s.assemble(c, true)
	// Newest payment first, as the profile page shows them.
	sort.Slice(c.Payments, func(i, j int) bool { return c.Payments[i].Date.After(c.Payments[j].Date) })
	return c, nil
}

func (s *Store) ListClients(_ context.Context) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, s.assemble(c, false))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateClient(ctx context.Context, c core.Client) (core.Client, error) {
	s.mu.Lock()
	old, ok := s.clients[c.ID]
	if !ok {
		s.mu.Unlock()
		return core.Client{}, notFound("client", c.ID)
	}
	c.CreatedAt = old.CreatedAt
	c.Projects, c.Payments, c.Appointments = nil, nil, nil
	s.clients[c.ID] = c
	s.mu.Unlock()
	return s.GetClient(ctx, c.ID)
}

// assemble attaches relations to a stored client. Callers hold s.mu.
func (s *Store) assemble(c core.Client, full bool) core.Client {
	c.Projects = s.projectsWhere(func(p core.Project) bool { return p.ClientID == c.ID }, full)
	c.Payments = []core.Payment{}
	for _, p := range sortedPayments(s.payments) {
		if p.ClientID == c.ID {
			c.Payments = append(c.Payments, p)
		}
	}
	if full {
		c.Appointments = []core.Appointment{}
		for _, a := range s.sortedAppointments() {
			if a.ClientID == c.ID {
				c.Appointments = append(c.Appointments, a)
			}
		}
	}
	return c
}

func (s *Store) projectsWhere(match func(core.Project) bool, withMeasurements bool) []core.Project {
	out := []core.Project{}
	for _, p := range s.projects {
		if !match(p) {
			continue
		}
		p.Expenses = []core.ProjectExpense{}
		for _, e := range s.expenses {
			if e.ProjectID == p.ID {
				p.Expenses = append(p.Expenses, e)
			}
		}
		sort.Slice(p.Expenses, func(i, j int) bool { return p.Expenses[i].ID < p.Expenses[j].ID })
		if withMeasurements {
			for _, m := range s.measurements {
				if m.ProjectID == p.ID {
					p.Measurements = append(p.Measurements, m)
				}
			}
			sort.Slice(p.Measurements, func(i, j int) bool { return p.Measurements[i].ID > p.Measurements[j].ID })
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[p.ClientID]; !ok {
		return core.Project{}, notFound("client", p.ClientID)
	}
	p.ID = s.id()
	p.Expenses = []core.ProjectExpense{}
	p.Measurements = nil
	s.projects[p.ID] = p
	return p, nil
}

func (s *Store) GetProject(_ context.Context, id int64) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.projectsWhere(func(p core.Project) bool { return p.ID == id }, false)
	if len(list) == 0 {
		return core.Project{}, notFound("project", id)
	}
	return list[0], nil
}

func (s *Store) SetProjectPickedUp(ctx context.Context, id int64, pickedUp bool) (core.Project, error) {
	s.mu.Lock()
	p, ok := s.projects[id]
	if !ok {
		s.mu.Unlock()
		return core.Project{}, notFound("project", id)
	}
	p.IsPickedUp = pickedUp
	s.projects[id] = p
	s.mu.Unlock()
	return s.GetProject(ctx, id)
}

func (s *Store) AddProjectExpense(_ context.Context, e core.ProjectExpense) (core.ProjectExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	if err := e.Validate(); err != nil {
		return core.ProjectExpense{}, err
	}
	if _, ok := s.projects[e.ProjectID]; !ok {
		return core.ProjectExpense{}, notFound("project", e.ProjectID)
	}
	e.ID = s.id()
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) ListProjectBillings(_ context.Context) ([]core.ProjectBilling, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byClient := map[int64][]core.Payment{}
	for _, p := range sortedPayments(s.payments) {
		byClient[p.ClientID] = append(byClient[p.ClientID], p)
	}
	projects := s.projectsWhere(func(core.Project) bool { return true }, false)
	out := make([]core.ProjectBilling, 0, len(projects))
	for _, p := range projects {
		out = append(out, core.ProjectBilling{Project: p, ClientPayments: byClient[p.ClientID]})
	}
	return out, nil
}

func (s *Store) RecordPayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[p.ClientID]; !ok {
		return core.Payment{}, notFound("client", p.ClientID)
	}
	p.ID = s.id()
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return core.Payment{}, notFound("payment", id)
	}
	return p, nil
}

func (s *Store) ListPayments(_ context.Context, period core.Period) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Payment{}
	for _, p := range sortedPayments(s.payments) {
		if period.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CreateBusinessExpense(_ context.Context, e core.BusinessExpense) (core.BusinessExpense, error) {
	if err := e.Validate(); err != nil {
		return core.BusinessExpense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.overhead[e.ID] = e
	return e, nil
}

func (s *Store) GetBusinessExpense(_ context.Context, id int64) (core.BusinessExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.overhead[id]
	if !ok {
		return core.BusinessExpense{}, notFound("business expense", id)
	}
	return e, nil
}

// ListBusinessExpenses returns overhead inside period, newest first.
func (s *Store) ListBusinessExpenses(_ context.Context, period core.Period) ([]core.BusinessExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.BusinessExpense{}
	for _, e := range s.overhead {
		if period.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) CreateMeasurement(_ context.Context, m core.Measurement) (core.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Date.IsZero() {
		m.Date = s.now()
	}
	if err := m.Validate(); err != nil {
		return core.Measurement{}, err
	}
	if _, ok := s.projects[m.ProjectID]; !ok {
		return core.Measurement{}, notFound("project", m.ProjectID)
	}
	m.ID = s.id()
	s.measurements[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMeasurement(_ context.Context, m core.Measurement) (core.Measurement, error) {
	if err := m.ValidateValues(); err != nil {
		return core.Measurement{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.measurements[m.ID]
	if !ok {
		return core.Measurement{}, notFound("measurement", m.ID)
	}
	m.ProjectID = old.ProjectID
	m.Date = old.Date
	s.measurements[m.ID] = m
	return m, nil
}

func (s *Store) DeleteMeasurement(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.measurements[id]; !ok {
		return notFound("measurement", id)
	}
	delete(s.measurements, id)
	return nil
}

func (s *Store) FindOrCreateService(_ context.Context, name string, defaultDuration int) (core.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Service{}, core.ErrEmptyServiceName
	}
	if defaultDuration <= 0 {
		return core.Service{}, core.ErrInvalidDuration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc, ok := s.services[name]; ok {
		return svc, nil
	}
	svc := core.Service{ID: s.id(), Name: name, DefaultDurationMin: defaultDuration, Active: true}
	s.services[name] = svc
	return svc, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a core.Appointment) (core.Appointment, error) {
	if err := a.Validate(); err != nil {
		return core.Appointment{}, err
	}
	s.mu.Lock()
	if _, ok := s.clients[a.ClientID]; !ok {
		s.mu.Unlock()
		return core.Appointment{}, notFound("client", a.ClientID)
	}
	if a.Status == "" {
		a.Status = core.StatusScheduled
	}
	a.ID = s.id()
	a.Client, a.Service = nil, nil
	s.appointments[a.ID] = a
	s.mu.Unlock()
	return s.GetAppointment(ctx, a.ID)
}

func (s *Store) GetAppointment(_ context.Context, id int64) (core.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return core.Appointment{}, notFound("appointment", id)
	}
	return s.withRelations(a), nil
}

func (s *Store) ListAppointments(_ context.Context) ([]core.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Appointment{}
	for _, a := range s.sortedAppointments() {
		if a.Status == core.StatusScheduled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) RescheduleAppointment(_ context.Context, id int64, start, end time.Time) (core.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return core.Appointment{}, notFound("appointment", id)
	}
	moved, err := a.Reschedule(start, end)
	if err != nil {
		return core.Appointment{}, err
	}
	s.appointments[id] = moved
	return s.withRelations(moved), nil
}

func (s *Store) MarkConfirmationSent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return notFound("appointment", id)
	}
	a.ConfirmationSent = true
	s.appointments[id] = a
	return nil
}

func (s *Store) CancelAppointment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return notFound("appointment", id)
	}
	if a.Status == core.StatusCancelled {
		return fmt.Errorf("appointment %d: %w", id, core.ErrAlreadyCancelled)
	}
	a.Status = core.StatusCancelled
	s.appointments[id] = a
	return nil
}

// withRelations attaches service and client contact details. Callers hold s.mu.
func (s *Store) withRelations(a core.Appointment) core.Appointment {
	for _, svc := range s.services {
		if svc.ID == a.ServiceID {
			svc := svc
			a.Service = &svc
			break
		}
	}
	if c, ok := s.clients[a.ClientID]; ok {
		a.Client = &core.Client{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
	}
	return a
}

func (s *Store) sortedAppointments() []core.Appointment {
	out := make([]core.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, s.withRelations(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedPayments(m map[int64]core.Payment) []core.Payment {
	out := make([]core.Payment, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
