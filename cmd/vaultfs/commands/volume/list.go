package volume

import (
	"fmt"
	"os"
	"strconv"

	"github.com/marmos91/vaultfs/pkg/apiclient"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all volumes",
	Long: `List the volumes registered with the VaultFS server, ordered by
sort order.

Examples:
  # List volumes as table
  vaultfs volume list

  # List as JSON
  vaultfs volume list -o json

  # List as YAML
  vaultfs volume list -o yaml`,
	RunE: runList,
}

// VolumeList is a list of volumes for table rendering.
type VolumeList []apiclient.Volume

// Headers implements TableRenderer.
func (vl VolumeList) Headers() []string {
	return []string{"ID", "NAME", "BACKEND", "SORT ORDER"}
}

// Rows implements TableRenderer.
func (vl VolumeList) Rows() [][]string {
	rows := make([][]string, 0, len(vl))
	for _, v := range vl {
		rows = append(rows, []string{v.ID, v.Name, v.Backend, strconv.Itoa(v.SortOrder)})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleAbort(err)
	}

	volumes, err := client.ListVolumes()
	if err != nil {
		return fmt.Errorf("failed to list volumes: %w", err)
	}

	return printOutput(os.Stdout, volumes, len(volumes) == 0, "No volumes found.", VolumeList(volumes))
}
