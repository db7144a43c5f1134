package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/Mihika-Tech/LiveCollab/internal/application/config"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/database/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <command> [args]",
	Short: "Run database migrations",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.New()
		if err != nil {
			log.Fatalf("could not load config: %v", err)
		}

		db, err := database.Open(cmd.Context(), cfg)
		if err != nil {
			log.Fatalf("goose: failed to open DB: %v", err)
		}

		defer func() {
			if err := db.Close(); err != nil {
				log.Fatalf("goose: failed to close DB: %v", err)
			}
		}()

		if err = runMigrations(cmd.Context(), cfg.Database.Driver, db, args[0], args[1:]...); err != nil {
			log.Fatalf("goose: %s failed: %v", args[0], err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// runMigrations выполняет команду goose над встроенными миграциями драйвера
func runMigrations(ctx context.Context, driver string, db *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations.MigrationsFS)

	if err := goose.SetDialect(database.GooseDriver(driver)); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	return goose.RunContext(ctx, command, db.DB, migrations.Dir(driver), args...)
}
