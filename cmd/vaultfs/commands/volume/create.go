package volume

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/marmos91/vaultfs/internal/cli/prompt"
	"github.com/marmos91/vaultfs/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	createName      string
	createBackend   string
	createSortOrder int
	createConfig    string
	// Filesystem specific
	createBasePath string
	// S3 specific
	createBucket    string
	createRegion    string
	createEndpoint  string
	createKeyPrefix string
	createAccessKey string
	createSecretKey string
	// Badger specific
	createDBPath string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new volume",
	Long: `Register a new volume with the VaultFS server.

Supported backends:
  - fs: Local filesystem backend
  - s3: AWS S3 or S3-compatible backend
  - badger: Embedded key-value backend
  - memory: In-memory backend (fast, ephemeral)

Backend-specific options:
  fs:
    --path: Root directory for stored objects (or prompted interactively)

  s3:
    --bucket: S3 bucket name (or prompted interactively)
    --region: AWS region (default: us-east-1)
    --endpoint: Custom endpoint for S3-compatible stores
    --key-prefix: Prefix prepended to every object key
    --access-key: AWS access key ID
    --secret-key: AWS secret access key

  badger:
    --db-path: Database directory (or prompted interactively)

Examples:
  # Register a local-disk volume
  vaultfs volume create --name media --backend fs --path /srv/media

  # Register an S3 volume
  vaultfs volume create --name archive --backend s3 --bucket my-assets --region eu-west-1

  # Register a MinIO volume (S3-compatible)
  vaultfs volume create --name minio-vol --backend s3 --bucket assets --endpoint http://localhost:9000

  # Register with raw JSON config
  vaultfs volume create --name media --backend fs --config '{"base_path":"/srv/media","create_base":false}'

  # Register interactively
  vaultfs volume create --name media --backend fs`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Volume name (required)")
	createCmd.Flags().StringVar(&createBackend, "backend", "", "Backend type: fs, s3, badger, memory (required)")
	createCmd.Flags().IntVar(&createSortOrder, "sort-order", 0, "Listing position (lower sorts first)")
	createCmd.Flags().StringVar(&createConfig, "config", "", "Backend configuration as JSON (for advanced config)")
	// Filesystem flags
	createCmd.Flags().StringVar(&createBasePath, "path", "", "Root directory (required for fs)")
	// S3 flags
	createCmd.Flags().StringVar(&createBucket, "bucket", "", "S3 bucket name (required for s3)")
	createCmd.Flags().StringVar(&createRegion, "region", "us-east-1", "AWS region (for s3)")
	createCmd.Flags().StringVar(&createEndpoint, "endpoint", "", "Custom S3 endpoint (for S3-compatible stores)")
	createCmd.Flags().StringVar(&createKeyPrefix, "key-prefix", "", "Object key prefix (for s3)")
	createCmd.Flags().StringVar(&createAccessKey, "access-key", "", "AWS access key ID (for s3)")
	createCmd.Flags().StringVar(&createSecretKey, "secret-key", "", "AWS secret access key (for s3)")
	// Badger flags
	createCmd.Flags().StringVar(&createDBPath, "db-path", "", "Database directory (required for badger)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return handleAbort(err)
	}

	name := createName
	if name == "" {
		name, err = prompt.InputRequired("Volume name")
		if err != nil {
			return handleAbort(err)
		}
	}

	backend := createBackend
	if backend == "" {
		backend, err = prompt.SelectString("Backend type", []string{"fs", "s3", "badger", "memory"})
		if err != nil {
			return handleAbort(err)
		}
	}

	config, err := buildVolumeConfig(backend)
	if err != nil {
		return handleAbort(err)
	}

	req := &apiclient.CreateVolumeRequest{
		Name:      name,
		Backend:   backend,
		Config:    config,
		SortOrder: createSortOrder,
	}

	vol, err := client.CreateVolume(req)
	if err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}

	return printResourceWithSuccess(os.Stdout, vol, fmt.Sprintf("Volume '%s' (backend: %s) created successfully", vol.Name, vol.Backend))
}

// buildVolumeConfig assembles the backend config from the type-specific
// flags, prompting for required values that were not passed. A raw
// --config JSON document takes precedence over everything else.
func buildVolumeConfig(backend string) (map[string]any, error) {
	if createConfig != "" {
		var config map[string]any
		if err := json.Unmarshal([]byte(createConfig), &config); err != nil {
			return nil, fmt.Errorf("invalid JSON config: %w", err)
		}
		return config, nil
	}

	switch backend {
	case "memory":
		return nil, nil

	case "fs":
		basePath := createBasePath
		if basePath == "" {
			var err error
			basePath, err = prompt.InputRequired("Root directory")
			if err != nil {
				return nil, err
			}
		}
		return map[string]any{"base_path": basePath}, nil

	case "badger":
		dbPath := createDBPath
		if dbPath == "" {
			var err error
			dbPath, err = prompt.InputRequired("Database directory")
			if err != nil {
				return nil, err
			}
		}
		return map[string]any{"path": dbPath}, nil

	case "s3":
		bucket := createBucket
		region := createRegion
		endpoint := createEndpoint
		accessKey := createAccessKey
		secretKey := createSecretKey

		if bucket == "" {
			var err error
			bucket, err = prompt.InputRequired("S3 bucket name")
			if err != nil {
				return nil, err
			}

			region, err = prompt.Input("AWS region", "us-east-1")
			if err != nil {
				return nil, err
			}

			endpoint, err = prompt.Input("Custom endpoint (for S3-compatible stores)", "")
			if err != nil {
				return nil, err
			}
		}

		// Prompt for credentials if not provided
		if accessKey == "" {
			var err error
			accessKey, err = prompt.Input("Access key ID (leave empty for instance profile/env vars)", "")
			if err != nil {
				return nil, err
			}
		}

		if accessKey != "" && secretKey == "" {
			var err error
			secretKey, err = prompt.Password("Secret access key")
			if err != nil {
				return nil, err
			}
		}

		config := map[string]any{
			"bucket": bucket,
			"region": region,
		}
		if endpoint != "" {
			config["endpoint"] = endpoint
		}
		if createKeyPrefix != "" {
			config["key_prefix"] = createKeyPrefix
		}
		if accessKey != "" {
			config["access_key_id"] = accessKey
		}
		if secretKey != "" {
			config["secret_access_key"] = secretKey
		}
		return config, nil

	default:
		return nil, fmt.Errorf("unknown backend type: %s (supported: fs, s3, badger, memory)", backend)
	}
}
