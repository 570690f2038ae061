package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/joao-fontenele/kiosk-orders/internal/config"
	"github.com/joao-fontenele/kiosk-orders/internal/logging"
)

func main() {
	cfg, err := config.Load("migrate")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewWithWriter(os.Stdout, slog.LevelInfo, cfg.ServiceName, cfg.ServiceVersion)

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var migrationsPath string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the orders database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", cfg.MigrationsPath, "migrations source URL")

	open := func() (*migrate.Migrate, error) {
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("POSTGRES_URL environment variable is required")
		}
		m, err := migrate.New(migrationsPath, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("create migrate instance: %w", err)
		}
		return m, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer func() { _, _ = m.Close() }()

				err = m.Up()
				if errors.Is(err, migrate.ErrNoChange) {
					logger.Info("no pending migrations")
					return nil
				}
				if err != nil {
					return fmt.Errorf("migration up: %w", err)
				}
				logger.Info("migrations applied successfully")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer func() { _, _ = m.Close() }()

				err = m.Steps(-1)
				if errors.Is(err, migrate.ErrNoChange) {
					logger.Info("no migrations to rollback")
					return nil
				}
				if err != nil {
					return fmt.Errorf("migration down: %w", err)
				}
				logger.Info("migration rolled back successfully")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer func() { _, _ = m.Close() }()

				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					logger.Info("no migrations applied yet")
					return nil
				}
				if err != nil {
					return fmt.Errorf("get version: %w", err)
				}
				logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
				return nil
			},
		},
	)

	return root
}
