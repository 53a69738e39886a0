package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/catalog/store"
	"github.com/marmos91/vaultfs/pkg/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the catalog database.

This command applies pending database migrations to the configured catalog
database (SQLite or PostgreSQL). It is required after upgrading VaultFS when
schema changes have been made.

Examples:
  # Run migrations with default config
  vaultfs migrate

  # Run migrations with custom config
  vaultfs migrate --config /etc/vaultfs/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Running database migrations", "type", cfg.Database.Type)

	// Open the catalog store (this applies the schema)
	ctx := context.Background()
	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = st.Close() }()

	// Verify the migration worked by checking if we can query volumes
	_, err = st.ListVolumes(ctx)
	if err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Database.Type)
	return nil
}
