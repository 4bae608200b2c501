package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"atelier/internal/amqp"
	"atelier/internal/core"
	"atelier/internal/storage/memory"
)

type publishedLedger struct {
	kind core.LedgerKind
	id   int64
}

type fakePublisher struct {
	mu            sync.Mutex
	ledger        []publishedLedger
	notifications []*amqp.NotificationMessage
	err           error
}

func (f *fakePublisher) PublishLedgerSync(_ context.Context, kind core.LedgerKind, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ledger = append(f.ledger, publishedLedger{kind, id})
	return nil
}

func (f *fakePublisher) PublishNotification(_ context.Context, msg *amqp.NotificationMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notifications = append(f.notifications, msg)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func mustClient(t *testing.T, s *memory.Store, c core.Client) core.Client {
	t.Helper()
	created, err := s.CreateClient(context.Background(), c)
	require.NoError(t, err)
	return created
}

func mustPay(t *testing.T, s *memory.Store, clientID, cents int64, on time.Time) {
	t.Helper()
	_, err := s.RecordPayment(context.Background(), core.Payment{ClientID: clientID, Amount: core.Cents(cents), Date: on})
	require.NoError(t, err)
}

func gown(member string, cents int64) core.Project {
	return core.Project{MemberName: member, OrderType: core.OrderRental, Price: core.Cents(cents)}
}
