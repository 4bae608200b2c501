// Package services orchestrates the store, the message broker and the
// finance reducers for the HTTP handlers and the admin CLI.
package services

import (
	"context"

	"atelier/internal/amqp"
	"atelier/internal/core"
)

// LedgerPublisher announces new payments and overhead to the ledger worker.
type LedgerPublisher interface {
	PublishLedgerSync(ctx context.Context, kind core.LedgerKind, id int64) error
}

// NotificationPublisher queues appointment notifications.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}
