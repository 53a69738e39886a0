package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/vaultfs/pkg/api/auth"
)

// InitConfig creates a sample configuration file at the default location.
//
// Returns the path of the created file. Fails if a config file already
// exists unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
//
// The generated file contains a commented walkthrough of every section
// and a freshly generated random JWT secret, so a server started against
// it works out of the box. Fails if the file already exists unless force
// is true.
func InitConfigToPath(path string, force bool) error {
	return InitConfigWithUsers(path, force, nil)
}

// InitConfigWithUsers creates a sample configuration file with the given
// API accounts rendered into the users section. An empty slice keeps the
// commented sample entries.
func InitConfigWithUsers(path string, force bool, users []auth.User) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	secret, err := generateJWTSecret()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(sampleConfigTemplate, secret, renderUsersSection(users))

	// 0600 because the file contains the generated JWT secret.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateJWTSecret returns 32 bytes of entropy as a hex string, suitable
// as an HMAC signing key for development setups.
func generateJWTSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// renderUsersSection renders the api.users entries for the sample file,
// or the commented placeholder when no account was created yet.
func renderUsersSection(users []auth.User) string {
	if len(users) == 0 {
		return `  # users:
  #   - username: admin
  #     password_hash: $2a$10$...
  #     role: admin`
	}

	var b strings.Builder
	b.WriteString("  users:")
	for _, u := range users {
		fmt.Fprintf(&b, "\n    - username: %s", u.Username)
		fmt.Fprintf(&b, "\n      password_hash: %s", u.PasswordHash)
		fmt.Fprintf(&b, "\n      role: %s", u.Role)
	}
	return b.String()
}

// sampleConfigTemplate is the generated sample configuration. Values that
// have sensible defaults are commented out so the file documents them
// without pinning them. The placeholders receive the generated JWT secret
// and the rendered users section.
const sampleConfigTemplate = `# VaultFS Configuration File
#
# Generated by 'vaultfs init'. Every value can also be set through
# environment variables with the VAULTFS_ prefix, which take precedence
# over this file. Example: VAULTFS_LOGGING_LEVEL=DEBUG

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Output format: text or json
  format: text
  # Where logs are written: stdout, stderr, or a file path
  output: stdout

# Maximum time to wait for graceful shutdown.
# shutdown_timeout: 30s

database:
  # Catalog database backend: sqlite (single node) or postgres.
  type: sqlite
  # sqlite:
  #   path: ~/.local/share/vaultfs/catalog.db
  # postgres:
  #   host: localhost
  #   port: 5432
  #   database: vaultfs
  #   user: vaultfs
  #   password: ""
  #   ssl_mode: disable

api:
  # HTTP port for the REST API.
  port: 8080
  # Cap on asset upload request bodies.
  # max_upload_size: 1Gi
  jwt:
    # HMAC signing key for JWT tokens (at least 32 characters).
    # The VAULTFS_API_SECRET environment variable takes precedence.
    secret: %s
  # API accounts. Passwords are stored as bcrypt hashes; manage accounts
  # with 'vaultfs user add <username>'.
%s

metrics:
  # Prometheus metrics endpoint, served on /metrics.
  enabled: false
  # port: 9090

telemetry:
  # OpenTelemetry tracing, exported over OTLP gRPC.
  enabled: false
  # endpoint: localhost:4317
  # sample_rate: 1.0

transform:
  # Directory for upload working copies used by derivative generation.
  # Default: $XDG_CACHE_HOME/vaultfs/transform-sources
  # cache_dir: /var/cache/vaultfs/transform-sources
  # sweep_interval: 15m

volumes:
  # Volumes registered at startup. Entries whose name already exists in
  # the catalog are skipped, so this section is safe across restarts.
  # - name: main
  #   backend: fs
  #   config:
  #     base_path: /srv/vaultfs/assets
  # - name: archive
  #   backend: s3
  #   config:
  #     bucket: my-assets
  #     region: eu-west-1
`
