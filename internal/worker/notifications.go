package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier/internal/amqp"
)

// Notifier delivers one appointment notification to a client.
type Notifier interface {
	Notify(ctx context.Context, msg *amqp.NotificationMessage) error
}

// LogNotifier writes the rendered notification to the log instead of
// sending it.
type LogNotifier struct {
	Logger *slog.Logger
	Loc    *time.Location
}

func (n LogNotifier) Notify(ctx context.Context, msg *amqp.NotificationMessage) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	subject, body := RenderNotification(msg, n.Loc)
	logger.InfoContext(ctx, "Appointment notification",
		"notification_id", msg.ID,
		"to", msg.Email,
		"subject", subject,
		"body", body)
	return nil
}

// RenderNotification builds the subject and plain-text body for msg, with
// times shown in loc.
func RenderNotification(msg *amqp.NotificationMessage, loc *time.Location) (subject, body string) {
	if loc == nil {
		loc = time.UTC
	}
	start := msg.Start.In(loc)
	when := fmt.Sprintf("%s at %s", start.Format("Monday, 2 January 2006"), start.Format("15:04"))

	switch msg.Kind {
	case amqp.NotifyReschedule:
		subject = "Your appointment has been moved"
		body = fmt.Sprintf("Hello %s,\n\nYour %s appointment has been moved to %s.\n", msg.ClientName, msg.ServiceName, when)
	default:
		subject = "Appointment confirmation"
		body = fmt.Sprintf("Hello %s,\n\nYour %s appointment is confirmed for %s.\n", msg.ClientName, msg.ServiceName, when)
	}
	return subject, body
}

const seenCapacity = 1024

// NotificationWorker hands queued notifications to a Notifier, skipping
// redeliveries of a notification it already delivered.
type NotificationWorker struct {
	notifier Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	seen  map[uuid.UUID]struct{}
	order []uuid.UUID
}

func NewNotificationWorker(notifier Notifier, logger *slog.Logger) *NotificationWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationWorker{
		notifier: notifier,
		logger:   logger,
		seen:     make(map[uuid.UUID]struct{}),
	}
}

func (w *NotificationWorker) HandleMessage(ctx context.Context, msg *amqp.NotificationMessage) error {
	if w.delivered(msg.ID) {
		w.logger.InfoContext(ctx, "Skipping duplicate notification", "notification_id", msg.ID)
		return nil
	}
	if err := w.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("notify appointment %d: %w", msg.AppointmentID, err)
	}
	w.remember(msg.ID)
	return nil
}

func (w *NotificationWorker) delivered(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[id]
	return ok
}

func (w *NotificationWorker) remember(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; ok {
		return
	}
	if len(w.order) >= seenCapacity {
		delete(w.seen, w.order[0])
		w.order = w.order[1:]
	}
	w.seen[id] = struct{}{}
	w.order = append(w.order, id)
}
