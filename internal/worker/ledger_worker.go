// Package worker exports payments and overhead to the spreadsheet ledger and
// delivers appointment notifications.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"atelier/internal/amqp"
	"atelier/internal/core"
	"atelier/internal/ports"
)

// LedgerWorker copies ledger entries from the database to the ledger sheet.
type LedgerWorker struct {
	source    ports.LedgerSource
	writer    ports.LedgerWriter
	batchSize int
	logger    *slog.Logger
}

func NewLedgerWorker(source ports.LedgerSource, writer ports.LedgerWriter, batchSize int, logger *slog.Logger) *LedgerWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerWorker{source: source, writer: writer, batchSize: batchSize, logger: logger}
}

// HandleMessage exports the record named by msg. A record that no longer
// exists is logged and acknowledged; any other failure is returned so the
// broker redelivers.
func (w *LedgerWorker) HandleMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger sync message",
		"ledger_kind", msg.Kind,
		"id", msg.ID)

	entry, err := w.source.LedgerEntry(ctx, msg.Kind, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Ledger record not found, dropping message",
			"ledger_kind", msg.Kind, "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger entry: %w", err)
	}
	return w.export(ctx, entry)
}

// ProcessPending exports one batch of entries that were never synced. It
// covers messages lost between the save and the publish.
func (w *LedgerWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.drain(ctx, w.batchSize)
	return err
}

// StartupSyncCheck exports a larger backlog before the worker starts
// consuming, to recover from downtime.
func (w *LedgerWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.drain(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending ledger entries found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *LedgerWorker) drain(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.source.PendingLedgerEntries(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending ledger entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending ledger entries", "count", len(pending))
	for _, entry := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.export(ctx, entry); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export ledger entry",
				"ledger_ref", entry.Reference(), "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *LedgerWorker) export(ctx context.Context, entry core.LedgerEntry) error {
	ref, err := w.writer.AppendLedgerEntry(ctx, entry)
	if err != nil {
		if markErr := w.source.MarkLedgerSyncError(ctx, entry.Kind, entry.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				"ledger_ref", entry.Reference(), "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.source.MarkLedgerSynced(ctx, entry.Kind, entry.ID, ref); err != nil {
		// The row is on the sheet; a retry finds it by reference.
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			"ledger_ref", entry.Reference(), "error", err)
	}

	w.logger.InfoContext(ctx, "Ledger entry exported",
		"ledger_ref", entry.Reference(),
		"sheets_ref", ref,
		"amount", entry.SignedAmount().String())
	return nil
}
