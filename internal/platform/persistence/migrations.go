package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver

	"github.com/savings-fund-ledger/internal/config"
)

const fileScheme = "file://"

// ErrDirtySchema is returned when a previous migration failed halfway and needs manual repair
var ErrDirtySchema = errors.New("ledger schema is dirty")

// MigrationSourceURL turns a migrations directory into a golang-migrate source URL.
// Paths that already carry a scheme are returned unchanged.
func MigrationSourceURL(migrationsPath string) (string, error) {
	if migrationsPath == "" {
		return "", errors.New("migrations path cannot be empty")
	}
	if strings.Contains(migrationsPath, "://") {
		return migrationsPath, nil
	}
	return fileScheme + migrationsPath, nil
}

// RunMigrations brings the ledger schema up to the latest version
func RunMigrations(logger *slog.Logger, cfg *config.PostgresConfig) error {
	sourceURL, err := MigrationSourceURL(cfg.MigrationsPath)
	if err != nil {
		return err
	}
	if cfg.URL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(sourceURL, cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", "source_error", sourceErr, "database_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply ledger migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}

	logger.Info("Ledger schema up to date", "version", version, "source", sourceURL)
	return nil
}
