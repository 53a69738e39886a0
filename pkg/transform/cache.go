// Package transform manages local working copies of uploaded sources.
//
// Derivative generation (thumbnails, previews) needs a file on the local
// filesystem. Uploads to non-local volumes would otherwise have to be
// downloaded again, so the save pipeline stores a copy of the source
// here right after a successful upload and queues it for cleanup once
// the derivatives exist.
package transform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/vaultfs/internal/logger"
)

// LocalSourceCache stores working copies under a cache directory.
type LocalSourceCache struct {
	mu      sync.Mutex
	dir     string
	pending []string
}

// DefaultCacheDir returns the default cache directory under XDG_CACHE_HOME.
func DefaultCacheDir() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		homeDir, _ := os.UserHomeDir()
		cacheDir = filepath.Join(homeDir, ".cache")
	}
	return filepath.Join(cacheDir, "vaultfs", "transform-sources")
}

// NewLocalSourceCache creates the cache directory if needed.
func NewLocalSourceCache(dir string) (*LocalSourceCache, error) {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transform cache directory: %w", err)
	}
	return &LocalSourceCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *LocalSourceCache) Dir() string {
	return c.dir
}

// StoreLocalSource copies src into the cache keyed by asset id and
// extension, returning the stored path. The copy is written to a
// temporary file and renamed so a partially written source is never
// visible.
func (c *LocalSourceCache) StoreLocalSource(ctx context.Context, assetID, ext string, src io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	target := filepath.Join(c.dir, assetID+ext)

	tmpPath := target + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create working copy: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write working copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	return target, nil
}

// QueueForCleanup marks a stored path for removal by the next Sweep.
func (c *LocalSourceCache) QueueForCleanup(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, path)
}

// Pending returns the number of queued paths (for tests).
func (c *LocalSourceCache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Sweep removes every queued working copy and returns how many were
// removed. Paths that fail to delete stay queued for the next sweep.
func (c *LocalSourceCache) Sweep(ctx context.Context) int {
	c.mu.Lock()
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()

	removed := 0
	var retry []string
	for _, path := range queued {
		if err := ctx.Err(); err != nil {
			retry = append(retry, path)
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove working copy", logger.Path(path), logger.Err(err))
			retry = append(retry, path)
			continue
		}
		removed++
	}

	if len(retry) > 0 {
		c.mu.Lock()
		c.pending = append(retry, c.pending...)
		c.mu.Unlock()
	}

	return removed
}
