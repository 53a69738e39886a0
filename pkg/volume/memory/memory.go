// Package memory provides an in-memory volume backend for tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/vaultfs/pkg/volume"
)

func init() {
	volume.MustRegister("memory", func(_ context.Context, raw map[string]any) (volume.Backend, error) {
		var cfg Config
		if err := mapstructure.Decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid memory volume config: %w", err)
		}
		return New(cfg), nil
	})
}

// Config holds configuration for the memory backend.
type Config struct {
	// Local controls what Local() reports, so tests can exercise both
	// the local and the remote code paths.
	Local bool `mapstructure:"local"`
}

// Backend is a map-backed implementation of volume.Backend.
type Backend struct {
	mu     sync.RWMutex
	files  map[string][]byte
	dirs   map[string]struct{}
	local  bool
	closed bool
}

// New creates an empty in-memory backend.
func New(cfg Config) *Backend {
	return &Backend{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
		local: cfg.Local,
	}
}

// CreateFile stores the contents of r at path.
func (b *Backend) CreateFile(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	if _, exists := b.files[path]; exists {
		return volume.ErrAlreadyExists
	}
	b.files[path] = data
	return nil
}

// DeleteFile removes the object at path, if present.
func (b *Backend) DeleteFile(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	delete(b.files, path)
	return nil
}

// RenameFile moves an object to a new path.
func (b *Backend) RenameFile(ctx context.Context, oldPath, newPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	data, exists := b.files[oldPath]
	if !exists {
		return volume.ErrNotFound
	}
	if _, exists := b.files[newPath]; exists {
		return volume.ErrAlreadyExists
	}
	b.files[newPath] = data
	delete(b.files, oldPath)
	return nil
}

// CreateDir records a directory marker at path.
func (b *Backend) CreateDir(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	if _, exists := b.dirs[path]; exists {
		return volume.ErrAlreadyExists
	}
	b.dirs[path] = struct{}{}
	return nil
}

// DeleteDir removes the directory marker and every object under it.
func (b *Backend) DeleteDir(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return volume.ErrClosed
	}
	for file := range b.files {
		if strings.HasPrefix(file, path) {
			delete(b.files, file)
		}
	}
	for dir := range b.dirs {
		if strings.HasPrefix(dir, path) {
			delete(b.dirs, dir)
		}
	}
	return nil
}

// Local reports the configured locality.
func (b *Backend) Local() bool {
	return b.local
}

// HealthCheck reports whether the backend is open.
func (b *Backend) HealthCheck(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return volume.ErrClosed
	}
	return nil
}

// Close marks the backend as closed.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

// FileExists reports whether an object is stored at path (for tests).
func (b *Backend) FileExists(path string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.files[path]
	return exists
}

// FileData returns a stored object's contents (for tests).
func (b *Backend) FileData(path string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, exists := b.files[path]
	return data, exists
}

// DirExists reports whether a directory marker is stored at path (for tests).
func (b *Backend) DirExists(path string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.dirs[path]
	return exists
}

// FileCount returns the number of stored objects (for tests).
func (b *Backend) FileCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.files)
}

var _ volume.Backend = (*Backend)(nil)
