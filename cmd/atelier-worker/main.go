package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"atelier/internal/cli"
	applog "atelier/internal/log"
	gsheet "atelier/internal/sheets/google"
	"atelier/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting atelier-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	amqpClient := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg)
	if amqpClient == nil {
		logger.Error("atelier-worker needs a reachable AMQP broker")
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(ctx)

	notifyLogger := logger.WithComponent(applog.ComponentNotify).Slog()
	notifications := worker.NewNotificationWorker(worker.LogNotifier{Logger: notifyLogger, Loc: cfg.Location()}, notifyLogger)
	g.Go(func() error {
		return amqpClient.ConsumeNotifications(gctx, notifications.HandleMessage)
	})

	var sweeper *worker.Sweeper
	if err := cfg.ValidateLedgerExport(); err != nil {
		logger.Warn("Ledger export disabled", applog.FieldError, err)
	} else {
		res := cli.InitBackend(ctx, logger, cfg)
		defer res.Cleanup()

		sheets, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetBase:       cfg.GoogleLedgerSheet,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			Location:        cfg.Location(),
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		ledgerLogger := logger.WithComponent(applog.ComponentLedger).Slog()
		ledger := worker.NewLedgerWorker(res.Ledger, sheets, cfg.LedgerSyncBatchSize, ledgerLogger)

		logger.Info("Performing startup sync check...")
		if err := ledger.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup sync check", applog.FieldError, err)
		}

		sweeper = worker.NewSweeper("ledger", cfg.LedgerSyncInterval, ledger.ProcessPending, ledgerLogger)
		if err := sweeper.Start(ctx); err != nil {
			logger.Error("Failed to start ledger sweeper", applog.FieldError, err)
		}

		g.Go(func() error {
			return amqpClient.ConsumeLedgerSync(gctx, ledger.HandleMessage)
		})
	}

	err := g.Wait()

	if sweeper != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = sweeper.Stop(stopCtx)
		cancel()
	}

	if ctx.Err() == nil {
		// A consumer gave up without a shutdown signal.
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
