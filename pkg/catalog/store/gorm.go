// Package store implements the relational metadata index for the catalog
// on GORM, with SQLite (single node) and PostgreSQL (HA-capable) backends
// behind the same codebase.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// DatabaseType defines the supported database backends.
type DatabaseType string

const (
	// DatabaseTypeSQLite uses SQLite (single-node, default).
	DatabaseTypeSQLite DatabaseType = "sqlite"

	// DatabaseTypePostgres uses PostgreSQL.
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the SQLite database file path.
	// Default: $XDG_DATA_HOME/vaultfs/catalog.db
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" json:"host" yaml:"host"`
	Port         int    `mapstructure:"port" json:"port" yaml:"port"`
	Database     string `mapstructure:"database" json:"database" yaml:"database"`
	User         string `mapstructure:"user" json:"user" yaml:"user"`
	Password     string `mapstructure:"password" json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode      string `mapstructure:"ssl_mode" json:"ssl_mode" yaml:"ssl_mode"` // disable, require, verify-ca, verify-full
	MaxOpenConns int    `mapstructure:"max_open_conns" json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" json:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config contains database configuration.
type Config struct {
	Type     DatabaseType   `mapstructure:"type" json:"type" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" json:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}

	if c.Type == DatabaseTypeSQLite && c.SQLite.Path == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, _ := os.UserHomeDir()
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		c.SQLite.Path = filepath.Join(dataDir, "vaultfs", "catalog.db")
	}

	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// GORMStore implements the catalog metadata index using GORM.
type GORMStore struct {
	db     *gorm.DB
	config *Config
}

// New opens the catalog store. SQLite schemas are created via GORM
// AutoMigrate; PostgreSQL schemas are managed by the versioned SQL
// migrations (see RunPostgresMigrations), which New runs before
// connecting.
func New(config *Config) (*GORMStore, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if config.SQLite.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// WAL for concurrent readers with a single writer; busy_timeout
		// waits up to 5s when the database is locked.
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)

	case DatabaseTypePostgres:
		if err := RunPostgresMigrations(&config.Postgres); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		dialector = postgres.Open(config.Postgres.DSN())

	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // suppress GORM logs by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	}

	if config.Type == DatabaseTypeSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		// A single connection serializes writers and makes ":memory:"
		// databases (one per connection) behave as one database.
		sqlDB.SetMaxOpenConns(1)

		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to run database migration: %w", err)
		}
	}

	return &GORMStore{db: db, config: config}, nil
}

// DB returns the underlying GORM database connection, mainly for tests.
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// Ping verifies database connectivity.
func (s *GORMStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueConstraintError checks if the error is a unique constraint
// violation from either SQLite or PostgreSQL.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}

// convertNotFoundError converts gorm.ErrRecordNotFound to the matching
// domain sentinel.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}

// escapeLike escapes LIKE wildcards in a literal prefix so it can be used
// in a prefix match.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
