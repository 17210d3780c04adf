package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/plantelhq/plantel/internal/audit"
	"github.com/plantelhq/plantel/internal/billingconfig"
	"github.com/plantelhq/plantel/internal/charge"
	"github.com/plantelhq/plantel/internal/clock"
	"github.com/plantelhq/plantel/internal/config"
	"github.com/plantelhq/plantel/internal/enrollment"
	"github.com/plantelhq/plantel/internal/migration"
	"github.com/plantelhq/plantel/internal/notification"
	"github.com/plantelhq/plantel/internal/observability"
	"github.com/plantelhq/plantel/internal/payment"
	"github.com/plantelhq/plantel/internal/schoolyear"
	"github.com/plantelhq/plantel/internal/seed"
	"github.com/plantelhq/plantel/internal/server"
	"github.com/plantelhq/plantel/internal/storage"
	"github.com/plantelhq/plantel/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plantel",
		Short: "School administration and tuition billing service",
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newServeCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := observability.NewLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			conn, err := db.Open(cfg, log)
			if err != nil {
				return err
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB)
		},
	}
}

func newSeedCmd() *cobra.Command {
	var periodo string
	var skipConfig bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the school year, payment methods and initial billing configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := observability.NewLogger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			conn, err := db.Open(cfg, log)
			if err != nil {
				return err
			}
			return seed.EnsureBaseline(conn, seed.Options{
				Periodo:    periodo,
				SkipConfig: skipConfig,
			})
		},
	}
	cmd.Flags().StringVar(&periodo, "periodo", "", `school year label, e.g. "2025-2026" (default: derived from today)`)
	cmd.Flags().BoolVar(&skipConfig, "skip-config", false, "do not create an initial billing configuration")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			newApp().Run()
			return nil
		},
	}
}

func newApp() *fx.App {
	return fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		audit.Module,
		notification.Module,
		storage.Module,

		schoolyear.Module,
		billingconfig.Module,
		enrollment.Module,
		payment.Module,
		charge.Module,

		server.Module,
	)
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
