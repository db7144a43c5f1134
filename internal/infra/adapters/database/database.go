package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Mihika-Tech/LiveCollab/internal/application/config"
)

// Open подключается к хранилищу, выбранному в DB_DRIVER
func Open(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.Postgres.DSN())
	case config.DriverSQLite:
		return NewSQLite(ctx, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Database.Driver)
	}
}

// GooseDriver - имя драйвера и диалекта для goose
func GooseDriver(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite3"
	}

	return "pgx"
}
