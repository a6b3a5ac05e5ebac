package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrate brings the schema up to date over a dedicated connection.
func (db *DB) Migrate() error {
	src, err := iofs.New(migrations, "migrations/"+db.driver)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	url, err := migrateURL(db.driver, db.address)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			db.log.Warn("close migrations failed", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		db.log.Info("schema migrated", "version", version, "dirty", dirty)
	}
	return nil
}

func migrateURL(driver, address string) (string, error) {
	switch driver {
	case DriverPostgres:
		for _, prefix := range []string{"postgres://", "postgresql://"} {
			if strings.HasPrefix(address, prefix) {
				return "pgx5://" + strings.TrimPrefix(address, prefix), nil
			}
		}
		return "", fmt.Errorf("postgres address must be a postgres:// url")
	case DriverSQLite:
		return "sqlite://" + strings.TrimPrefix(address, "file:"), nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", driver)
	}
}
