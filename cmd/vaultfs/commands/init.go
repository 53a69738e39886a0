package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/vaultfs/internal/cli/prompt"
	"github.com/marmos91/vaultfs/pkg/api"
	"github.com/marmos91/vaultfs/pkg/api/auth"
	"github.com/marmos91/vaultfs/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initForce  bool
	initNoUser bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample VaultFS configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/vaultfs/config.yaml
and the first API account is created interactively. Use --config to specify
a custom path and --no-user to skip account creation.

Examples:
  # Initialize with default location
  vaultfs init

  # Initialize with custom path
  vaultfs init --config /etc/vaultfs/config.yaml

  # Force overwrite existing config
  vaultfs init --force

  # Skip the interactive account prompt
  vaultfs init --no-user`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVar(&initNoUser, "no-user", false, "Skip interactive creation of the first API account")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	// Refuse before prompting, so an aborted run leaves nothing behind.
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	var users []auth.User
	if !initNoUser {
		user, err := promptInitialUser()
		if err != nil {
			if !prompt.IsAborted(err) {
				return err
			}
			fmt.Println("\nSkipped account creation. Add one later with: vaultfs user add <username>")
		} else {
			users = append(users, user)
		}
	}

	if err := config.InitConfigWithUsers(configPath, initForce, users); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	if len(users) > 0 {
		fmt.Printf("Created admin account '%s'\n", users[0].Username)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: vaultfs start")
	fmt.Printf("  3. Or specify custom config: vaultfs start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random JWT secret has been generated for development use.")
	fmt.Println("  For production, generate a secure secret and use an environment variable:")
	fmt.Println("    # Generates a 64-character hex string (32 bytes of entropy)")
	fmt.Printf("    export %s=$(openssl rand -hex 32)\n", api.EnvAPISecret)

	return nil
}

// promptInitialUser asks for the first API account interactively.
func promptInitialUser() (auth.User, error) {
	fmt.Println("Create the first API account (Ctrl+C to skip):")

	username, err := prompt.InputRequired("Username")
	if err != nil {
		return auth.User{}, err
	}

	password, err := prompt.PasswordWithConfirmation("Password", "Confirm password", 8)
	if err != nil {
		return auth.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return auth.User{
		Username:     username,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}, nil
}
