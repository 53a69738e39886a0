//go:build e2e

// Package e2e drives a real vaultfs server process over the REST API.
// Tests build the binary on demand, start it in foreground mode with a
// generated config, and talk to it through pkg/apiclient.
package e2e

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/marmos91/vaultfs/internal/cli/health"
	"github.com/marmos91/vaultfs/pkg/api/auth"
)

// jwtSecret is the signing secret baked into generated test configs. It
// only needs to satisfy the 32-character minimum.
const jwtSecret = "e2e-test-secret-key-must-be-at-least-32-chars"

// Test account passwords (bcrypt hashes are generated per run).
const (
	AdminPassword  = "admin-password"
	EditorPassword = "editor-password"
	ViewerPassword = "viewer-password"
)

// ServerProcess manages a vaultfs server subprocess. It provides methods
// to start the server, check health, send signals, and stop gracefully.
type ServerProcess struct {
	cmd           *exec.Cmd
	pidFile       string
	apiPort       int
	logFile       string
	stateDir      string
	configFile    string
	process       *os.Process
	logFileHandle *os.File
}

// FindFreePort finds an available TCP port by binding to :0 and reading
// the assigned port.
func FindFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

// StartServerProcess starts a vaultfs server in foreground mode with a
// generated config and polls /health until it responds. State (database,
// pid file, log file, volume data) lives under t.TempDir().
func StartServerProcess(t *testing.T) *ServerProcess {
	t.Helper()

	stateDir := t.TempDir()
	apiPort := FindFreePort(t)
	configFile := writeServerConfig(t, stateDir, apiPort)

	pidFile := filepath.Join(stateDir, "vaultfs.pid")
	logFile := filepath.Join(stateDir, "vaultfs.log")

	binary := findVaultfsBinary(t)

	cmd := exec.Command(binary, "start", "--foreground",
		"--config", configFile,
		"--pid-file", pidFile,
		"--log-file", logFile)
	cmd.Env = os.Environ()

	logFileHandle, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		t.Fatalf("Failed to start vaultfs server: %v", err)
	}

	sp := &ServerProcess{
		cmd:           cmd,
		pidFile:       pidFile,
		apiPort:       apiPort,
		logFile:       logFile,
		stateDir:      stateDir,
		configFile:    configFile,
		process:       cmd.Process,
		logFileHandle: logFileHandle,
	}

	if err := sp.WaitReady(10 * time.Second); err != nil {
		sp.DumpLogs(t)
		sp.ForceKill()
		t.Fatalf("Server failed to become ready: %v", err)
	}

	return sp
}

// RunVaultfs runs the vaultfs binary with the given arguments and
// returns its combined output.
func RunVaultfs(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	binary := findVaultfsBinary(t)
	cmd := exec.Command(binary, args...)
	cmd.Env = os.Environ()
	return cmd.CombinedOutput()
}

// writeServerConfig renders a config file with the given API port. It
// declares three accounts (admin, editor, viewer) and two volumes: an
// in-memory "scratch" volume and a local-disk "media" volume rooted
// under the state dir.
func writeServerConfig(t *testing.T, stateDir string, apiPort int) string {
	t.Helper()

	hash := func(password string) string {
		h, err := auth.HashPassword(password)
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		return h
	}

	configContent := fmt.Sprintf(`# Test configuration generated by e2e test
logging:
  level: DEBUG
  format: text
  output: stdout

database:
  type: sqlite
  sqlite:
    path: "%s/catalog.db"

transform:
  cache_dir: "%s/transform"

api:
  port: %d
  jwt:
    secret: "%s"
  users:
    - username: admin
      password_hash: "%s"
      role: admin
    - username: editor
      password_hash: "%s"
      role: editor
    - username: viewer
      password_hash: "%s"
      role: viewer

volumes:
  - name: scratch
    backend: memory
  - name: media
    backend: fs
    sort_order: 1
    config:
      base_path: "%s/media"
`, stateDir, stateDir, apiPort, jwtSecret,
		hash(AdminPassword), hash(EditorPassword), hash(ViewerPassword),
		stateDir)

	configFile := filepath.Join(stateDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	return configFile
}

// WaitReady polls the /health endpoint until the server responds or the
// timeout elapses.
func (sp *ServerProcess) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	url := fmt.Sprintf("http://127.0.0.1:%d/health", sp.apiPort)

	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		lastErr = fmt.Errorf("health check returned %d", resp.StatusCode)
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not healthy after %v: %w", timeout, lastErr)
}

// CheckHealth performs a GET /health and parses the response.
func (sp *ServerProcess) CheckHealth() (*health.Response, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/health", sp.apiPort)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var healthResp health.Response
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}

	return &healthResp, nil
}

// CheckReady performs a GET /health/ready and returns the HTTP status
// and parsed status string.
func (sp *ServerProcess) CheckReady() (int, string, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/health/ready", sp.apiPort)

	resp, err := client.Get(url)
	if err != nil {
		return 0, "", fmt.Errorf("readiness check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to decode readiness response: %w", err)
	}

	return resp.StatusCode, body.Status, nil
}

// SendSignal sends a signal to the server process.
func (sp *ServerProcess) SendSignal(sig syscall.Signal) error {
	if sp.process == nil {
		return fmt.Errorf("no process to signal")
	}
	return sp.process.Signal(sig)
}

// WaitForExit waits for the process to exit within the timeout.
func (sp *ServerProcess) WaitForExit(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		_, err := sp.process.Wait()
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("process did not exit within %v", timeout)
	}
}

// StopGracefully sends SIGTERM and waits for clean exit.
func (sp *ServerProcess) StopGracefully() error {
	if err := sp.SendSignal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}
	return sp.WaitForExit(10 * time.Second)
}

// ForceKill terminates the server process, trying SIGTERM first so the
// API server can close connections cleanly.
func (sp *ServerProcess) ForceKill() {
	if sp.process == nil {
		return
	}

	_ = sp.process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_, _ = sp.process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = sp.process.Kill()
		<-done
	}

	if sp.logFileHandle != nil {
		_ = sp.logFileHandle.Close()
		sp.logFileHandle = nil
	}
	sp.process = nil
}

// ProcessRunning checks if the server process is still running.
func (sp *ServerProcess) ProcessRunning() bool {
	if sp.process == nil {
		return false
	}
	// Signal 0 checks process existence without delivering a signal.
	err := sp.process.Signal(syscall.Signal(0))
	return err == nil
}

// PID returns the process ID of the server, or 0 when not running.
func (sp *ServerProcess) PID() int {
	if sp.process == nil {
		return 0
	}
	return sp.process.Pid
}

// APIURL returns the base URL for API clients.
func (sp *ServerProcess) APIURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", sp.apiPort)
}

// APIPort returns the port the API server listens on.
func (sp *ServerProcess) APIPort() int {
	return sp.apiPort
}

// PidFile returns the path to the server PID file.
func (sp *ServerProcess) PidFile() string {
	return sp.pidFile
}

// LogFile returns the path to the server log file.
func (sp *ServerProcess) LogFile() string {
	return sp.logFile
}

// StateDir returns the server's state directory.
func (sp *ServerProcess) StateDir() string {
	return sp.stateDir
}

// DumpLogs prints the log file contents to help debug failures.
func (sp *ServerProcess) DumpLogs(t *testing.T) {
	t.Helper()

	content, err := os.ReadFile(sp.logFile)
	if err != nil {
		t.Logf("Could not read log file: %v", err)
		return
	}

	t.Logf("Server logs:\n%s", string(content))
}

// findVaultfsBinary locates the vaultfs binary, building it if necessary.
func findVaultfsBinary(t *testing.T) string {
	t.Helper()

	if path, err := exec.LookPath("vaultfs"); err == nil {
		return path
	}

	projectRoot := findProjectRoot(t)
	localBinary := filepath.Join(projectRoot, "vaultfs")
	if _, err := os.Stat(localBinary); err == nil {
		return localBinary
	}

	t.Log("Building vaultfs binary...")
	cmd := exec.Command("go", "build", "-o", localBinary, "./cmd/vaultfs/")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build vaultfs: %v\n%s", err, output)
	}

	return localBinary
}

// findProjectRoot locates the project root by looking for go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("Could not find project root (go.mod not found)")
		}
		dir = parent
	}
}
