// Package fs provides a local-filesystem volume backend. Objects are
// plain files under a base directory, so volumes on this backend are
// directly readable by other local tooling.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/vaultfs/pkg/volume"
)

func init() {
	volume.MustRegister("fs", func(_ context.Context, raw map[string]any) (volume.Backend, error) {
		var cfg Config
		if err := mapstructure.Decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid fs volume config: %w", err)
		}
		return New(cfg)
	})
}

// Config holds configuration for the filesystem backend.
type Config struct {
	// BasePath is the root directory for stored objects. Object paths are
	// resolved relative to this directory.
	BasePath string `mapstructure:"base_path"`

	// CreateBase creates the base directory if it doesn't exist.
	// Default: true.
	CreateBase *bool `mapstructure:"create_base"`

	// DirMode is the permission mode for created directories.
	// Default: 0755.
	DirMode os.FileMode `mapstructure:"dir_mode"`

	// FileMode is the permission mode for created files.
	// Default: 0644.
	FileMode os.FileMode `mapstructure:"file_mode"`
}

// Backend is a filesystem-backed implementation of volume.Backend.
type Backend struct {
	mu       sync.RWMutex
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	closed   bool
}

// New creates a filesystem backend rooted at cfg.BasePath.
func New(cfg Config) (*Backend, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}

	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}

	if cfg.CreateBase == nil || *cfg.CreateBase {
		if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("base path is not a directory")
	}

	return &Backend{
		basePath: cfg.BasePath,
		dirMode:  cfg.DirMode,
		fileMode: cfg.FileMode,
	}, nil
}

// objectPath returns the full filesystem path for an object path.
// Object paths use forward slashes as separators.
func (b *Backend) objectPath(path string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(path))
}

// CreateFile stores the contents of r at path. The final path is claimed
// with O_EXCL so concurrent creators race safely, then the content is
// written to a temporary file and renamed over the claim so readers never
// observe a partial object.
func (b *Backend) CreateFile(ctx context.Context, path string, r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := b.objectPath(path)
	if err := os.MkdirAll(filepath.Dir(target), b.dirMode); err != nil {
		return err
	}

	claim, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, b.fileMode)
	if err != nil {
		if os.IsExist(err) {
			return volume.ErrAlreadyExists
		}
		return err
	}
	claim.Close()

	tmpPath := target + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, b.fileMode)
	if err != nil {
		os.Remove(target)
		return err
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		os.Remove(target)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		os.Remove(target)
		return err
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		os.Remove(target)
		return err
	}

	return nil
}

// DeleteFile removes the object at path. Missing objects are not an
// error. Empty parent directories left behind are pruned up to the base.
func (b *Backend) DeleteFile(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := b.objectPath(path)
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}

	b.cleanEmptyDirs(filepath.Dir(target))
	return nil
}

// RenameFile moves an object to a new path within the backend.
func (b *Backend) RenameFile(ctx context.Context, oldPath, newPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src := b.objectPath(oldPath)
	dst := b.objectPath(newPath)

	if _, err := os.Lstat(src); err != nil {
		if os.IsNotExist(err) {
			return volume.ErrNotFound
		}
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		return volume.ErrAlreadyExists
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), b.dirMode); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return err
	}

	b.cleanEmptyDirs(filepath.Dir(src))
	return nil
}

// CreateDir creates a directory at path.
func (b *Backend) CreateDir(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := b.objectPath(path)
	if err := os.MkdirAll(filepath.Dir(target), b.dirMode); err != nil {
		return err
	}
	if err := os.Mkdir(target, b.dirMode); err != nil {
		if os.IsExist(err) {
			return volume.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// DeleteDir removes a directory and everything under it. Missing
// directories are not an error.
func (b *Backend) DeleteDir(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := b.objectPath(path)
	if err := os.RemoveAll(target); err != nil {
		return err
	}

	b.cleanEmptyDirs(filepath.Dir(target))
	return nil
}

// cleanEmptyDirs removes empty directories up to the base path.
func (b *Backend) cleanEmptyDirs(dir string) {
	for dir != b.basePath && strings.HasPrefix(dir, b.basePath) {
		if err := os.Remove(dir); err != nil {
			// Directory not empty or other error, stop
			break
		}
		dir = filepath.Dir(dir)
	}
}

// Local reports true: objects are plain files under the base path.
func (b *Backend) Local() bool {
	return true
}

// HealthCheck verifies the base path is accessible.
func (b *Backend) HealthCheck(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return volume.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := os.Stat(b.basePath)
	return err
}

// Close marks the backend as closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

// BasePath returns the base path of the backend (for testing).
func (b *Backend) BasePath() string {
	return b.basePath
}

var _ volume.Backend = (*Backend)(nil)
