package database

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/iliyamo/recipe-app-api/internal/config"
	"github.com/iliyamo/recipe-app-api/migrations"
)

// MigrationURL builds the golang-migrate database URL for cfg.
func MigrationURL(cfg config.Config) string {
	if cfg.DBDriver == config.DriverSQLite {
		return SQLiteMigrationURL(cfg.DBPath)
	}
	auth := url.PathEscape(cfg.DBUser)
	if cfg.DBPass != "" {
		auth += ":" + url.PathEscape(cfg.DBPass)
	}
	return fmt.Sprintf("mysql://%s@tcp(%s:%s)/%s?multiStatements=true",
		auth, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// SQLiteMigrationURL builds the golang-migrate URL for a SQLite file.
func SQLiteMigrationURL(path string) string {
	return "sqlite3://" + path
}

// NewMigrator returns a migrate instance reading the embedded migrations
// for dialect d.  Callers must Close it.
func NewMigrator(d Dialect, databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, d.String())
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

// Migrate applies every pending migration.  An up-to-date schema is not an
// error.
func Migrate(d Dialect, databaseURL string) error {
	m, err := NewMigrator(d, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
