package transform

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestCache(t *testing.T) *LocalSourceCache {
	t.Helper()
	cache, err := NewLocalSourceCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return cache
}

func TestStoreLocalSource(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	path, err := cache.StoreLocalSource(ctx, "asset-1", ".jpg", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("StoreLocalSource failed: %v", err)
	}

	if filepath.Base(path) != "asset-1.jpg" {
		t.Errorf("stored as %q, expected asset-1.jpg", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read working copy: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("content = %q, expected pixels", data)
	}
}

func TestStoreLocalSourceNormalizesExtension(t *testing.T) {
	cache := newTestCache(t)

	path, err := cache.StoreLocalSource(context.Background(), "asset-2", "png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("StoreLocalSource failed: %v", err)
	}
	if filepath.Base(path) != "asset-2.png" {
		t.Errorf("stored as %q, expected asset-2.png", filepath.Base(path))
	}
}

func TestSweep(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	first, err := cache.StoreLocalSource(ctx, "a", ".jpg", strings.NewReader("1"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.StoreLocalSource(ctx, "b", ".jpg", strings.NewReader("2"))
	if err != nil {
		t.Fatal(err)
	}

	cache.QueueForCleanup(first)
	cache.QueueForCleanup(second)

	if removed := cache.Sweep(ctx); removed != 2 {
		t.Errorf("Sweep removed %d, expected 2", removed)
	}
	if cache.Pending() != 0 {
		t.Errorf("Pending = %d, expected 0", cache.Pending())
	}

	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed", first)
	}
}

func TestSweepTolerateMissing(t *testing.T) {
	cache := newTestCache(t)

	cache.QueueForCleanup(filepath.Join(cache.Dir(), "never-existed.jpg"))

	if removed := cache.Sweep(context.Background()); removed != 1 {
		t.Errorf("Sweep removed %d, expected missing file to count as removed", removed)
	}
	if cache.Pending() != 0 {
		t.Errorf("Pending = %d, expected 0", cache.Pending())
	}
}
