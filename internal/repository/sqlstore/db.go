// Package sqlstore persists extraction records in PostgreSQL or SQLite via sqlx.
package sqlstore

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"mailparser/db/migrations"
	"mailparser/internal/config"
)

// Driver names registered with database/sql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DriverName maps a configured driver to its database/sql name.
func DriverName(driver string) (string, error) {
	switch driver {
	case "", "postgres":
		return DriverPostgres, nil
	case "sqlite":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported db driver: %s", driver)
	}
}

// NewDB opens a connection pool for the configured driver.
func NewDB(cfg *config.DBConfig) (*sqlx.DB, error) {
	name, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Connect(name, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Driver, err)
	}
	if name == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		return db, nil
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	return db, nil
}

// NewMigrate returns a migrator for the embedded schema bound to db. Closing
// the returned migrator closes db.
func NewMigrate(db *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("sqlstore.NewMigrate: source: %w", err)
	}

	var (
		drv     database.Driver
		drvName string
	)
	switch db.DriverName() {
	case DriverSQLite:
		drvName = "sqlite"
		drv, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		drvName = "postgres"
		drv, err = postgres.WithInstance(db.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore.NewMigrate: driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, drvName, drv)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.NewMigrate: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration. db stays open.
func MigrateUp(db *sqlx.DB) error {
	m, err := NewMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore.MigrateUp: %w", err)
	}
	return nil
}
