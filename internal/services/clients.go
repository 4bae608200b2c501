package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atelier/internal/core"
	"atelier/internal/ports"
)

// ClientStore is what ClientService needs from a backend.
type ClientStore interface {
	ports.ClientStore
	ports.ProjectStore
	ports.MeasurementStore
}

// ClientService manages families, their gowns and measurements.
type ClientService struct {
	store  ClientStore
	logger *slog.Logger
}

func NewClientService(store ClientStore, logger *slog.Logger) *ClientService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientService{store: store, logger: logger}
}

func (s *ClientService) List(ctx context.Context) ([]core.Client, error) {
	return s.store.ListClients(ctx)
}

func (s *ClientService) Get(ctx context.Context, id int64) (core.Client, error) {
	return s.store.GetClient(ctx, id)
}

// Create stores a family together with any initial gowns.
func (s *ClientService) Create(ctx context.Context, c core.Client) (core.Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	created, err := s.store.CreateClient(ctx, c)
	if err != nil {
		return core.Client{}, fmt.Errorf("create client: %w", err)
	}
	s.logger.InfoContext(ctx, "Client created", "client_id", created.ID, "projects", len(created.Projects))
	return created, nil
}

// Update applies a partial update; omitted fields keep their values.
func (s *ClientService) Update(ctx context.Context, id int64, patch core.ClientPatch) (core.Client, error) {
	current, err := s.store.GetClient(ctx, id)
	if err != nil {
		return core.Client{}, err
	}
	updated, err := patch.Apply(current)
	if err != nil {
		return core.Client{}, err
	}
	return s.store.UpdateClient(ctx, updated)
}

// Finances computes the family bill from stored gowns and payments.
func (s *ClientService) Finances(ctx context.Context, id int64) (core.FamilyFinances, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return core.FamilyFinances{}, err
	}
	return core.CalculateFamilyFinances(c), nil
}

func (s *ClientService) AddProject(ctx context.Context, clientID int64, p core.Project) (core.Project, error) {
	p.ClientID = clientID
	p.MemberName = strings.TrimSpace(p.MemberName)
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	return s.store.CreateProject(ctx, p)
}

func (s *ClientService) AddProjectExpense(ctx context.Context, projectID int64, e core.ProjectExpense) (core.ProjectExpense, error) {
	e.ProjectID = projectID
	e.Type = strings.TrimSpace(e.Type)
	if err := e.Validate(); err != nil {
		return core.ProjectExpense{}, err
	}
	return s.store.AddProjectExpense(ctx, e)
}

func (s *ClientService) SetPickedUp(ctx context.Context, projectID int64, pickedUp bool) (core.Project, error) {
	return s.store.SetProjectPickedUp(ctx, projectID, pickedUp)
}

func (s *ClientService) CreateMeasurement(ctx context.Context, m core.Measurement) (core.Measurement, error) {
	if err := m.Validate(); err != nil {
		return core.Measurement{}, err
	}
	return s.store.CreateMeasurement(ctx, m)
}

func (s *ClientService) UpdateMeasurement(ctx context.Context, id int64, m core.Measurement) (core.Measurement, error) {
	m.ID = id
	if err := m.ValidateValues(); err != nil {
		return core.Measurement{}, err
	}
	return s.store.UpdateMeasurement(ctx, m)
}

func (s *ClientService) DeleteMeasurement(ctx context.Context, id int64) error {
	return s.store.DeleteMeasurement(ctx, id)
}
