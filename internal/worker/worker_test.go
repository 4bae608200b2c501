package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/amqp"
	"atelier/internal/core"
)

type ledgerKey struct {
	kind core.LedgerKind
	id   int64
}

type fakeSource struct {
	mu      sync.Mutex
	entries map[ledgerKey]core.LedgerEntry
	pending []ledgerKey
	synced  map[ledgerKey]string
	errored map[ledgerKey]bool
	loadErr error
}

func newFakeSource(entries ...core.LedgerEntry) *fakeSource {
	s := &fakeSource{
		entries: map[ledgerKey]core.LedgerEntry{},
		synced:  map[ledgerKey]string{},
		errored: map[ledgerKey]bool{},
	}
	for _, e := range entries {
		k := ledgerKey{e.Kind, e.ID}
		s.entries[k] = e
		s.pending = append(s.pending, k)
	}
	return s
}

func (s *fakeSource) LedgerEntry(_ context.Context, kind core.LedgerKind, id int64) (core.LedgerEntry, error) {
	if s.loadErr != nil {
		return core.LedgerEntry{}, s.loadErr
	}
	e, ok := s.entries[ledgerKey{kind, id}]
	if !ok {
		return core.LedgerEntry{}, fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	return e, nil
}

func (s *fakeSource) PendingLedgerEntries(_ context.Context, limit int) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Untried entries first, then failed ones, like the SQLite store.
	var fresh, retry []core.LedgerEntry
	for _, k := range s.pending {
		if _, done := s.synced[k]; done {
			continue
		}
		if s.errored[k] {
			retry = append(retry, s.entries[k])
		} else {
			fresh = append(fresh, s.entries[k])
		}
	}
	out := append(fresh, retry...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeSource) MarkLedgerSynced(_ context.Context, kind core.LedgerKind, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[ledgerKey{kind, id}] = ref
	delete(s.errored, ledgerKey{kind, id})
	return nil
}

func (s *fakeSource) MarkLedgerSyncError(_ context.Context, kind core.LedgerKind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored[ledgerKey{kind, id}] = true
	return nil
}

type fakeWriter struct {
	mu      sync.Mutex
	written []string
	failOn  string
}

func (w *fakeWriter) AppendLedgerEntry(_ context.Context, e core.LedgerEntry) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e.Reference() == w.failOn {
		return "", errors.New("sheets quota exceeded")
	}
	w.written = append(w.written, e.Reference())
	return fmt.Sprintf("Ledger!A%d:G%d", len(w.written)+1, len(w.written)+1), nil
}

func entry(kind core.LedgerKind, id int64) core.LedgerEntry {
	return core.LedgerEntry{Kind: kind, ID: id, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Amount: core.Cents(1000)}
}

func TestLedgerWorker_HandleMessage(t *testing.T) {
	src := newFakeSource(entry(core.LedgerPayment, 1))
	w := &fakeWriter{}
	lw := NewLedgerWorker(src, w, 10, nil)

	err := lw.HandleMessage(context.Background(), amqp.NewLedgerSyncMessage(core.LedgerPayment, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"payment-1"}, w.written)
	assert.Equal(t, "Ledger!A2:G2", src.synced[ledgerKey{core.LedgerPayment, 1}])
}

func TestLedgerWorker_HandleMessage_MissingRecordIsAcked(t *testing.T) {
	lw := NewLedgerWorker(newFakeSource(), &fakeWriter{}, 10, nil)

	err := lw.HandleMessage(context.Background(), amqp.NewLedgerSyncMessage(core.LedgerExpense, 42))
	assert.NoError(t, err)
}

func TestLedgerWorker_HandleMessage_Failures(t *testing.T) {
	src := newFakeSource(entry(core.LedgerExpense, 3))
	lw := NewLedgerWorker(src, &fakeWriter{failOn: "expense-3"}, 10, nil)

	err := lw.HandleMessage(context.Background(), amqp.NewLedgerSyncMessage(core.LedgerExpense, 3))
	assert.ErrorContains(t, err, "quota")
	assert.True(t, src.errored[ledgerKey{core.LedgerExpense, 3}])

	src.loadErr = errors.New("database is locked")
	err = lw.HandleMessage(context.Background(), amqp.NewLedgerSyncMessage(core.LedgerExpense, 3))
	assert.ErrorContains(t, err, "database is locked")
}

func TestLedgerWorker_ProcessPendingRespectsBatchSize(t *testing.T) {
	src := newFakeSource(
		entry(core.LedgerPayment, 1),
		entry(core.LedgerPayment, 2),
		entry(core.LedgerExpense, 1),
	)
	w := &fakeWriter{}
	lw := NewLedgerWorker(src, w, 2, nil)

	require.NoError(t, lw.ProcessPending(context.Background()))
	assert.Len(t, w.written, 2)

	require.NoError(t, lw.ProcessPending(context.Background()))
	assert.Equal(t, []string{"payment-1", "payment-2", "expense-1"}, w.written)
}

func TestLedgerWorker_StartupSyncCheckContinuesPastFailures(t *testing.T) {
	src := newFakeSource(
		entry(core.LedgerPayment, 1),
		entry(core.LedgerPayment, 2),
	)
	w := &fakeWriter{failOn: "payment-1"}
	lw := NewLedgerWorker(src, w, 1, nil)

	require.NoError(t, lw.StartupSyncCheck(context.Background()))
	assert.Equal(t, []string{"payment-2"}, w.written)
	assert.True(t, src.errored[ledgerKey{core.LedgerPayment, 1}])
}

func TestLedgerWorker_ProcessPendingRetriesFailedExports(t *testing.T) {
	src := newFakeSource(entry(core.LedgerExpense, 7))
	w := &fakeWriter{failOn: "expense-7"}
	lw := NewLedgerWorker(src, w, 10, nil)

	require.NoError(t, lw.ProcessPending(context.Background()))
	assert.Empty(t, w.written)
	assert.True(t, src.errored[ledgerKey{core.LedgerExpense, 7}])

	w.failOn = ""
	require.NoError(t, lw.ProcessPending(context.Background()))
	assert.Equal(t, []string{"expense-7"}, w.written)
	assert.False(t, src.errored[ledgerKey{core.LedgerExpense, 7}])
	assert.NotEmpty(t, src.synced[ledgerKey{core.LedgerExpense, 7}])
}

func TestSweeper_Lifecycle(t *testing.T) {
	var runs atomic.Int32
	s := NewSweeper("test", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	assert.False(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(ctx), "stopping twice is a no-op")
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(context.Context, *amqp.NotificationMessage) error {
	n.calls++
	return n.err
}

func notification(kind amqp.NotificationKind) *amqp.NotificationMessage {
	return &amqp.NotificationMessage{
		ID:          uuid.New(),
		Kind:        kind,
		ClientName:  "Cohen",
		Email:       "cohen@example.com",
		ServiceName: "Fitting",
		Start:       time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC),
	}
}

func TestNotificationWorker_SkipsRedelivery(t *testing.T) {
	n := &countingNotifier{}
	w := NewNotificationWorker(n, nil)
	msg := notification(amqp.NotifyConfirmation)

	require.NoError(t, w.HandleMessage(context.Background(), msg))
	require.NoError(t, w.HandleMessage(context.Background(), msg))
	assert.Equal(t, 1, n.calls)
}

func TestNotificationWorker_FailureIsRetried(t *testing.T) {
	n := &countingNotifier{err: errors.New("smtp down")}
	w := NewNotificationWorker(n, nil)
	msg := notification(amqp.NotifyConfirmation)

	assert.Error(t, w.HandleMessage(context.Background(), msg))
	n.err = nil
	assert.NoError(t, w.HandleMessage(context.Background(), msg))
	assert.Equal(t, 2, n.calls)
}

func TestNotificationWorker_ForgetsOldest(t *testing.T) {
	w := NewNotificationWorker(&countingNotifier{}, nil)
	first := notification(amqp.NotifyConfirmation)
	require.NoError(t, w.HandleMessage(context.Background(), first))
	for i := 0; i < seenCapacity; i++ {
		require.NoError(t, w.HandleMessage(context.Background(), notification(amqp.NotifyConfirmation)))
	}
	assert.False(t, w.delivered(first.ID))
	assert.Len(t, w.seen, seenCapacity)
}

func TestRenderNotification(t *testing.T) {
	loc := time.FixedZone("IST", 2*60*60)

	subject, body := RenderNotification(notification(amqp.NotifyConfirmation), loc)
	assert.Equal(t, "Appointment confirmation", subject)
	assert.Contains(t, body, "Hello Cohen")
	assert.Contains(t, body, "Fitting appointment is confirmed for Monday, 4 March 2024 at 10:30")

	subject, body = RenderNotification(notification(amqp.NotifyReschedule), nil)
	assert.Equal(t, "Your appointment has been moved", subject)
	assert.Contains(t, body, "moved to Monday, 4 March 2024 at 08:30")
}
