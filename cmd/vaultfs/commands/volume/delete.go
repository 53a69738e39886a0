package volume

import (
	"fmt"

	"github.com/marmos91/vaultfs/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <volume>",
	Short: "Delete a volume",
	Long: `Delete a volume from the VaultFS server, addressed by id or name.

The server rejects deleting a volume that still indexes folders or
assets. This action is irreversible. You will be prompted for
confirmation unless --force is specified.

Examples:
  # Delete a volume with confirmation
  vaultfs volume delete media

  # Delete a volume without confirmation
  vaultfs volume delete media --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleAbort(err)
	}

	vol, err := resolveVolume(client, args[0])
	if err != nil {
		return err
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete volume '%s'?", vol.Name), deleteForce)
	if err != nil {
		return handleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := client.DeleteVolume(vol.ID); err != nil {
		return fmt.Errorf("failed to delete volume: %w", err)
	}

	printSuccess(fmt.Sprintf("Volume '%s' deleted successfully", vol.Name))
	return nil
}
