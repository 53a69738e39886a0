// Package volume implements volume management commands for vaultfs.
package volume

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/vaultfs/internal/cli/output"
	"github.com/marmos91/vaultfs/internal/cli/prompt"
	"github.com/marmos91/vaultfs/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	serverURL    string
	serverToken  string
	authUsername string
	authPassword string
	outputFormat string
)

// Cmd is the parent command for volume management.
var Cmd = &cobra.Command{
	Use:   "volume",
	Short: "Volume management",
	Long: `Manage volumes registered with a running VaultFS server.

Volume commands talk to the REST API, so the server must be running.
Authenticate with --token, or with --username (the password is prompted
when --password is omitted). These operations require admin privileges.

Examples:
  # List all volumes
  vaultfs volume list --username admin

  # Register a local-disk volume
  vaultfs volume create --name media --backend fs --path /srv/media

  # Print the folder tree of one volume
  vaultfs volume tree media

  # Delete a volume
  vaultfs volume delete media --force`,
}

func init() {
	Cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	Cmd.PersistentFlags().StringVar(&serverToken, "token", "", "Bearer token (skips login)")
	Cmd.PersistentFlags().StringVarP(&authUsername, "username", "u", "", "Username to log in with")
	Cmd.PersistentFlags().StringVar(&authPassword, "password", "", "Password (prompted when omitted)")
	Cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")

	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(treeCmd)
}

// getClient returns an API client authenticated from the persistent
// flags. A token is used as-is; otherwise username and password are
// exchanged for one through the login endpoint.
func getClient() (*apiclient.Client, error) {
	client := apiclient.New(serverURL)

	if serverToken != "" {
		return client.WithToken(serverToken), nil
	}

	if authUsername == "" {
		return nil, errors.New("authentication required: pass --token, or --username to log in")
	}

	pass := authPassword
	if pass == "" {
		var err error
		pass, err = prompt.Password(fmt.Sprintf("Password for %s", authUsername))
		if err != nil {
			return nil, err
		}
	}

	tokens, err := client.Login(authUsername, pass)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return client.WithToken(tokens.AccessToken), nil
}

// printOutput prints data in the selected format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses
// the tableRenderer.
func printOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// printResourceWithSuccess prints a resource in the selected format. For
// table format, it displays a success message. For JSON/YAML, it outputs
// the resource.
func printResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		printSuccess(successMsg)
		return nil
	}
}

// printSuccess prints a success message if the output format is table.
func printSuccess(msg string) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(os.Stdout, format, true).Success(msg)
}

// handleAbort checks if error is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original
// error.
func handleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}

// resolveVolume resolves a volume reference that may be an id or a
// unique name.
func resolveVolume(client *apiclient.Client, ref string) (*apiclient.Volume, error) {
	vol, err := client.GetVolume(ref)
	if err == nil {
		return vol, nil
	}

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
		return nil, err
	}

	volumes, err := client.ListVolumes()
	if err != nil {
		return nil, err
	}
	for i := range volumes {
		if volumes[i].Name == ref {
			return &volumes[i], nil
		}
	}

	return nil, fmt.Errorf("volume not found: %s", ref)
}
