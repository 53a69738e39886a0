package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/vaultfs/internal/cli/output"
	"github.com/marmos91/vaultfs/internal/cli/prompt"
	"github.com/marmos91/vaultfs/pkg/api/auth"
	"github.com/marmos91/vaultfs/pkg/config"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API accounts",
	Long: `Manage the API accounts stored in the configuration file.

Accounts authenticate against the REST API; passwords are stored as
bcrypt hashes. The server reads the accounts at startup, so restart it
after changing them.

Examples:
  # Add an account (prompts for password and role)
  vaultfs user add alice

  # List accounts
  vaultfs user list

  # Change a password
  vaultfs user passwd alice

  # Delete an account
  vaultfs user delete alice`,
}

var (
	userAddRole     string
	userAddPassword string
	userDeleteForce bool
)

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add an API account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API accounts",
	RunE:  runUserList,
}

var userDeleteCmd = &cobra.Command{
	Use:     "delete <username>",
	Aliases: []string{"remove"},
	Short:   "Delete an API account",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserDelete,
}

var userPasswdCmd = &cobra.Command{
	Use:     "passwd <username>",
	Aliases: []string{"password"},
	Short:   "Change an account's password",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserPasswd,
}

func init() {
	userAddCmd.Flags().StringVar(&userAddRole, "role", "", "Account role (admin|editor|viewer, prompts if not provided)")
	userAddCmd.Flags().StringVarP(&userAddPassword, "password", "p", "", "Account password (prompts if not provided)")
	userDeleteCmd.Flags().BoolVarP(&userDeleteForce, "force", "f", false, "Skip confirmation prompt")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userPasswdCmd)
}

// loadUserConfig loads the configuration and returns it together with the
// path user edits are saved back to.
func loadUserConfig() (*config.Config, string, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, "", err
	}

	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return cfg, path, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadUserConfig()
	if err != nil {
		return err
	}

	for _, u := range cfg.API.Users {
		if u.Username == username {
			return fmt.Errorf("account %q already exists", username)
		}
	}

	role := auth.Role(userAddRole)
	if userAddRole == "" {
		picked, err := prompt.Select("Role", []prompt.SelectOption{
			{Label: "admin", Value: "admin", Description: "May view, edit and delete"},
			{Label: "editor", Value: "editor", Description: "May view and edit but not delete"},
			{Label: "viewer", Value: "viewer", Description: "May only view"},
		})
		if err != nil {
			return err
		}
		role = auth.Role(picked)
	}
	if !role.Valid() {
		return fmt.Errorf("invalid role %q (valid: admin, editor, viewer)", role)
	}

	password := userAddPassword
	if password == "" {
		password, err = prompt.PasswordWithConfirmation("Password", "Confirm password", 8)
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	cfg.API.Users = append(cfg.API.Users, auth.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Account '%s' created with role '%s'\n", username, role)
	fmt.Println("Restart the server for the change to take effect.")
	return nil
}

// UserList renders accounts as a table.
type UserList []auth.User

// Headers implements output.TableRenderer.
func (UserList) Headers() []string {
	return []string{"USERNAME", "ROLE"}
}

// Rows implements output.TableRenderer.
func (l UserList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		rows = append(rows, []string{u.Username, string(u.Role)})
	}
	return rows
}

func runUserList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadUserConfig()
	if err != nil {
		return err
	}

	if len(cfg.API.Users) == 0 {
		fmt.Println("No accounts configured. Add one with: vaultfs user add <username>")
		return nil
	}

	return output.PrintTable(os.Stdout, UserList(cfg.API.Users))
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadUserConfig()
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range cfg.API.Users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("account %q not found", username)
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete account '%s'?", username), userDeleteForce)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	cfg.API.Users = append(cfg.API.Users[:idx], cfg.API.Users[idx+1:]...)

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Account '%s' deleted\n", username)
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadUserConfig()
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range cfg.API.Users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("account %q not found", username)
	}

	password, err := prompt.PasswordWithConfirmation("New password", "Confirm password", 8)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	cfg.API.Users[idx].PasswordHash = hash

	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Password updated for account '%s'\n", username)
	fmt.Println("Restart the server for the change to take effect.")
	return nil
}
