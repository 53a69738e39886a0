package store

import (
	"strings"
	"testing"
)

func TestApplyDefaults_SQLite(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Type != DatabaseTypeSQLite {
		t.Errorf("Type = %q, expected sqlite", cfg.Type)
	}
	if cfg.SQLite.Path == "" {
		t.Error("expected a default SQLite path")
	}
	if !strings.Contains(cfg.SQLite.Path, "vaultfs") {
		t.Errorf("SQLite.Path = %q, expected it under a vaultfs directory", cfg.SQLite.Path)
	}
}

func TestApplyDefaults_Postgres(t *testing.T) {
	cfg := &Config{Type: DatabaseTypePostgres}
	cfg.ApplyDefaults()

	if cfg.Postgres.Port != 5432 {
		t.Errorf("Port = %d, expected 5432", cfg.Postgres.Port)
	}
	if cfg.Postgres.SSLMode != "disable" {
		t.Errorf("SSLMode = %q, expected disable", cfg.Postgres.SSLMode)
	}
	if cfg.Postgres.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, expected 25", cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns != 5 {
		t.Errorf("MaxIdleConns = %d, expected 5", cfg.Postgres.MaxIdleConns)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid sqlite",
			config: Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: ":memory:"}},
		},
		{
			name:    "sqlite without path",
			config:  Config{Type: DatabaseTypeSQLite},
			wantErr: true,
		},
		{
			name: "valid postgres",
			config: Config{
				Type: DatabaseTypePostgres,
				Postgres: PostgresConfig{
					Host:     "localhost",
					Database: "vaultfs",
					User:     "vaultfs",
				},
			},
		},
		{
			name: "postgres without host",
			config: Config{
				Type:     DatabaseTypePostgres,
				Postgres: PostgresConfig{Database: "vaultfs", User: "vaultfs"},
			},
			wantErr: true,
		},
		{
			name: "postgres without database",
			config: Config{
				Type:     DatabaseTypePostgres,
				Postgres: PostgresConfig{Host: "localhost", User: "vaultfs"},
			},
			wantErr: true,
		},
		{
			name:    "unknown type",
			config:  Config{Type: "oracle"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "catalog",
		User:     "vaultfs",
		Password: "secret",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	for _, part := range []string{"host=db.internal", "port=5433", "dbname=catalog", "user=vaultfs", "password=secret", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q missing %q", dsn, part)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain/path/", "plain/path/"},
		{"with_underscore/", `with\_underscore/`},
		{"with%percent/", `with\%percent/`},
		{`with\backslash/`, `with\\backslash/`},
	}

	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}
