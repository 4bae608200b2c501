package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"atelier/internal/backend"
	"atelier/internal/config"
	applog "atelier/internal/log"
	"atelier/internal/services"
	"atelier/internal/storage"
)

// App holds what the admin commands need. OpenBackend defaults to the
// configured backend factory.
type App struct {
	Config      *config.Config
	Logger      *applog.Logger
	OpenBackend func(ctx context.Context) (*backend.BackendResult, error)
}

func (a *App) open(ctx context.Context) (*backend.BackendResult, error) {
	if a.OpenBackend != nil {
		return a.OpenBackend(ctx)
	}
	bcfg, err := backend.FromAppConfig(a.Config)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.Logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(ctx, bcfg)
}

// NewRootCmd creates the top-level "atelierctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "atelierctl",
		Short:         "Administer the atelier gown workshop backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newReportCmd(app),
		newFamilyCmd(app),
		newMigrateCmd(app),
	)

	return root
}

func newReportCmd(app *App) *cobra.Command {
	var month, year string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the finance report for a month, a year or all time",
		Example: `  atelierctl report --month 2 --year 2024
  atelierctl report --month all --year 2024
  atelierctl report --year all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			svc := services.NewFinanceService(res.Backend, app.Config.Location(), app.Logger.WithComponent(applog.ComponentFinance).Slog())
			report, err := svc.Report(ctx, month, year)
			if err != nil {
				return fmt.Errorf("build report: %w", err)
			}
			return FormatReport(cmd.OutOrStdout(), report, app.Config.Location())
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month 1-12, or \"all\" for the whole year (default January)")
	cmd.Flags().StringVar(&year, "year", "", "Year, or \"all\" for all time (default current year)")

	return cmd
}

func newFamilyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "family <client-id>",
		Short: "Print a family's gowns, payments and balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid client id %q", args[0])
			}

			ctx := cmd.Context()
			res, err := app.open(ctx)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			svc := services.NewClientService(res.Backend, app.Logger.WithComponent(applog.ComponentClients).Slog())
			c, err := svc.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("load client %d: %w", id, err)
			}
			return FormatFamily(cmd.OutOrStdout(), c, app.Config.Location())
		},
	}
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !backend.BackendType(app.Config.DataBackend).Persistent() {
				return fmt.Errorf("migrate requires the sqlite backend, got %q", app.Config.DataBackend)
			}
			dbPath := app.Config.SQLiteDBPath
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if err := storage.RunMigrations(dbPath); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			app.Logger.Info("Migrations applied", "db_path", dbPath, "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}
