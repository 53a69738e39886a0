package config

import (
	"fmt"

	"github.com/marmos91/vaultfs/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the VaultFS configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  vaultfs config validate

  # Validate specific config file
  vaultfs config validate --config /etc/vaultfs/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Additional validation checks
	var warnings []string

	// Check JWT secret is configured
	if !cfg.API.HasJWTSecret() {
		warnings = append(warnings, "JWT secret not configured - API authentication will fail")
	}

	// Check at least one API account exists
	if len(cfg.API.Users) == 0 {
		warnings = append(warnings, "No API accounts configured - every login will fail")
	}

	// Check at least one volume is declared or likely registered
	if len(cfg.Volumes) == 0 {
		warnings = append(warnings, "No volumes declared - create one via the API before uploading assets")
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Database type:   %s\n", cfg.Database.Type)
	fmt.Printf("  API port:        %d\n", cfg.API.Port)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
