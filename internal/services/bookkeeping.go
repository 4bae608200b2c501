package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atelier/internal/core"
	"atelier/internal/ports"
)

type BookkeepingStore interface {
	ports.PaymentStore
	ports.ExpenseStore
}

// BookkeepingService records money in and out. Records are saved locally
// first; the ledger export is announced afterwards and a failed announcement
// never fails the request.
type BookkeepingService struct {
	store     BookkeepingStore
	publisher LedgerPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewBookkeepingService accepts a nil publisher when no broker is configured.
func NewBookkeepingService(store BookkeepingStore, publisher LedgerPublisher, logger *slog.Logger) *BookkeepingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookkeepingService{store: store, publisher: publisher, now: time.Now, logger: logger}
}

func (s *BookkeepingService) RecordPayment(ctx context.Context, clientID int64, p core.Payment) (core.Payment, error) {
	p.ClientID = clientID
	p.Method = strings.TrimSpace(p.Method)
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	saved, err := s.store.RecordPayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	s.logger.InfoContext(ctx, "Payment recorded",
		"payment_id", saved.ID,
		"client_id", saved.ClientID,
		"amount", saved.Amount.String())

	s.announce(ctx, core.LedgerPayment, saved.ID)
	return saved, nil
}

func (s *BookkeepingService) RecordExpense(ctx context.Context, e core.BusinessExpense) (core.BusinessExpense, error) {
	e.Type = strings.TrimSpace(e.Type)
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	if err := e.Validate(); err != nil {
		return core.BusinessExpense{}, err
	}
	saved, err := s.store.CreateBusinessExpense(ctx, e)
	if err != nil {
		return core.BusinessExpense{}, fmt.Errorf("save business expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Business expense recorded",
		"expense_id", saved.ID,
		"type", saved.Type,
		"amount", saved.Amount.String())

	s.announce(ctx, core.LedgerExpense, saved.ID)
	return saved, nil
}

func (s *BookkeepingService) ListExpenses(ctx context.Context, period core.Period) ([]core.BusinessExpense, error) {
	return s.store.ListBusinessExpenses(ctx, period)
}

func (s *BookkeepingService) announce(ctx context.Context, kind core.LedgerKind, id int64) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping ledger sync message",
			"ledger_kind", kind, "id", id)
		return
	}
	if err := s.publisher.PublishLedgerSync(ctx, kind, id); err != nil {
		// The pending sweep picks the record up later.
		s.logger.ErrorContext(ctx, "Failed to publish ledger sync message",
			"ledger_kind", kind, "id", id, "error", err)
	}
}
