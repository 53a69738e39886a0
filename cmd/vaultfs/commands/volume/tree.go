package volume

import (
	"fmt"
	"io"
	"os"

	"github.com/marmos91/vaultfs/internal/cli/output"
	"github.com/marmos91/vaultfs/pkg/apiclient"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree [volume]",
	Short: "Print the folder tree",
	Long: `Print the folder hierarchy of a volume, addressed by id or name.
Without an argument, the trees of all volumes are printed in sort
order.

Examples:
  # Print the folder tree of one volume
  vaultfs volume tree media

  # Print the trees of every volume
  vaultfs volume tree

  # Print the full hierarchy as JSON
  vaultfs volume tree -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleAbort(err)
	}

	var roots []*apiclient.FolderNode
	if len(args) == 1 {
		vol, err := resolveVolume(client, args[0])
		if err != nil {
			return err
		}
		roots, err = client.VolumeTree(vol.ID)
		if err != nil {
			return fmt.Errorf("failed to load folder tree: %w", err)
		}
	} else {
		roots, err = client.Forest()
		if err != nil {
			return fmt.Errorf("failed to load folder trees: %w", err)
		}
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, roots)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, roots)
	}

	volumes, err := client.ListVolumes()
	if err != nil {
		return fmt.Errorf("failed to list volumes: %w", err)
	}
	names := make(map[string]string, len(volumes))
	for _, v := range volumes {
		names[v.ID] = v.Name
	}

	printForest(os.Stdout, roots, names)
	return nil
}

// printForest renders folder trees grouped under their volume's name.
// Roots arrive ordered by volume sort order, so grouping by first
// appearance keeps that order.
func printForest(w io.Writer, roots []*apiclient.FolderNode, volumeNames map[string]string) {
	if len(roots) == 0 {
		_, _ = fmt.Fprintln(w, "No folders found.")
		return
	}

	byVolume := make(map[string][]*apiclient.FolderNode)
	var order []string
	for _, root := range roots {
		if _, seen := byVolume[root.VolumeID]; !seen {
			order = append(order, root.VolumeID)
		}
		byVolume[root.VolumeID] = append(byVolume[root.VolumeID], root)
	}

	for i, volumeID := range order {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		name := volumeNames[volumeID]
		if name == "" {
			name = volumeID
		}
		_, _ = fmt.Fprintln(w, name)
		printNodes(w, byVolume[volumeID], "")
	}
}

// printNodes renders sibling nodes with box-drawing branch glyphs,
// recursing into children with the continuation prefix.
func printNodes(w io.Writer, nodes []*apiclient.FolderNode, prefix string) {
	for i, node := range nodes {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(nodes)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		_, _ = fmt.Fprintf(w, "%s%s%s/\n", prefix, connector, node.Name)
		printNodes(w, node.Children, childPrefix)
	}
}
