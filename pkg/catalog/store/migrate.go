package store

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/catalog/store/migrations"
)

// newMigrator builds a migrate instance over the embedded SQL files.
// golang-migrate takes a PostgreSQL advisory lock, so concurrent catalog
// nodes never race on schema changes.
func newMigrator(config *PostgresConfig) (*migrate.Migrate, *sql.DB, error) {
	db, err := sql.Open("pgx", config.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    config.Database,
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, db, nil
}

// RunPostgresMigrations applies all pending migrations.
func RunPostgresMigrations(config *PostgresConfig) error {
	m, db, err := newMigrator(config)
	if err != nil {
		return err
	}
	defer db.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Debug("no migrations to apply, schema is up to date")
	} else {
		logger.Info("database migrations applied")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if err == nil {
		logger.Debug("current schema version", "version", version, "dirty", dirty)
		if dirty {
			logger.Warn("database schema is in dirty state, manual intervention may be required")
		}
	}

	return nil
}

// RollbackPostgresMigration reverts the most recent migration.
func RollbackPostgresMigration(config *PostgresConfig) error {
	m, db, err := newMigrator(config)
	if err != nil {
		return err
	}
	defer db.Close()

	err = m.Steps(-1)
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// PostgresMigrationVersion reports the current schema version. The bool
// result is the dirty flag; version 0 means no migrations have run.
func PostgresMigrationVersion(config *PostgresConfig) (uint, bool, error) {
	m, db, err := newMigrator(config)
	if err != nil {
		return 0, false, err
	}
	defer db.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return 0, false, err
	}
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}
	return version, dirty, nil
}
