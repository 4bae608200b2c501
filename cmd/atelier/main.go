package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"atelier/internal/cli"
	apphttp "atelier/internal/http"
	applog "atelier/internal/log"
	"atelier/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting atelier server")

	cfg := cli.LoadAndValidateConfig(logger)
	loc := cfg.Location()

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer res.Cleanup()

	// Nil interfaces, not nil *amqp.Client, when messaging is off.
	var (
		ledger services.LedgerPublisher
		notify services.NotificationPublisher
	)
	if client := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg); client != nil {
		defer client.Close()
		ledger, notify = client, client
	}

	svc := apphttp.Services{
		Clients:      services.NewClientService(res.Backend, logger.WithComponent(applog.ComponentClients).Slog()),
		Bookkeeping:  services.NewBookkeepingService(res.Backend, ledger, logger.WithComponent(applog.ComponentLedger).Slog()),
		Finance:      services.NewFinanceService(res.Backend, loc, logger.WithComponent(applog.ComponentFinance).Slog()),
		Appointments: services.NewAppointmentService(res.Backend, notify, loc, logger.WithComponent(applog.ComponentCalendar).Slog()),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger,
		Location:           loc,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Backend:            res.Backend,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Listening", "port", cfg.Port, "backend", cfg.DataBackend, "time_zone", loc.String())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
