// Package volumetest provides a conformance suite that every volume
// backend must pass.
package volumetest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marmos91/vaultfs/pkg/volume"
)

// Factory creates a fresh, empty backend for one test.
type Factory func(t *testing.T) volume.Backend

// RunBackendSuite runs the backend contract tests against a factory.
func RunBackendSuite(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("CreateFile", func(t *testing.T) {
		b := factory(t)

		if err := b.CreateFile(ctx, "docs/readme.txt", strings.NewReader("hello")); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
	})

	t.Run("CreateFileConflict", func(t *testing.T) {
		b := factory(t)

		if err := b.CreateFile(ctx, "docs/readme.txt", strings.NewReader("hello")); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
		err := b.CreateFile(ctx, "docs/readme.txt", strings.NewReader("again"))
		if !errors.Is(err, volume.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("DeleteFileFreesPath", func(t *testing.T) {
		b := factory(t)

		if err := b.CreateFile(ctx, "docs/readme.txt", strings.NewReader("hello")); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
		if err := b.DeleteFile(ctx, "docs/readme.txt"); err != nil {
			t.Fatalf("DeleteFile failed: %v", err)
		}
		if err := b.CreateFile(ctx, "docs/readme.txt", strings.NewReader("new")); err != nil {
			t.Errorf("expected path to be free after delete, got %v", err)
		}
	})

	t.Run("DeleteFileMissing", func(t *testing.T) {
		b := factory(t)

		if err := b.DeleteFile(ctx, "missing.txt"); err != nil {
			t.Errorf("expected deleting a missing file to be a no-op, got %v", err)
		}
	})

	t.Run("RenameFile", func(t *testing.T) {
		b := factory(t)

		if err := b.CreateFile(ctx, "a/old.txt", strings.NewReader("content")); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
		if err := b.RenameFile(ctx, "a/old.txt", "a/new.txt"); err != nil {
			t.Fatalf("RenameFile failed: %v", err)
		}

		// The old path is free again, the new path is occupied.
		if err := b.CreateFile(ctx, "a/old.txt", strings.NewReader("x")); err != nil {
			t.Errorf("expected old path to be free after rename, got %v", err)
		}
		err := b.CreateFile(ctx, "a/new.txt", strings.NewReader("x"))
		if !errors.Is(err, volume.ErrAlreadyExists) {
			t.Errorf("expected new path to be occupied after rename, got %v", err)
		}
	})

	t.Run("RenameFileMissingSource", func(t *testing.T) {
		b := factory(t)

		err := b.RenameFile(ctx, "missing.txt", "elsewhere.txt")
		if !errors.Is(err, volume.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RenameFileOccupiedDestination", func(t *testing.T) {
		b := factory(t)

		if err := b.CreateFile(ctx, "src.txt", strings.NewReader("src")); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
		if err := b.CreateFile(ctx, "dst.txt", strings.NewReader("dst")); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}

		err := b.RenameFile(ctx, "src.txt", "dst.txt")
		if !errors.Is(err, volume.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("CreateDir", func(t *testing.T) {
		b := factory(t)

		if err := b.CreateDir(ctx, "photos/"); err != nil {
			t.Fatalf("CreateDir failed: %v", err)
		}
		err := b.CreateDir(ctx, "photos/")
		if !errors.Is(err, volume.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("DeleteDirRemovesContents", func(t *testing.T) {
		b := factory(t)

		if err := b.CreateDir(ctx, "photos/"); err != nil {
			t.Fatalf("CreateDir failed: %v", err)
		}
		if err := b.CreateFile(ctx, "photos/cat.jpg", strings.NewReader("cat")); err != nil {
			t.Fatalf("CreateFile failed: %v", err)
		}
		if err := b.DeleteDir(ctx, "photos/"); err != nil {
			t.Fatalf("DeleteDir failed: %v", err)
		}

		// Everything under the prefix is gone.
		if err := b.CreateDir(ctx, "photos/"); err != nil {
			t.Errorf("expected directory path to be free after delete, got %v", err)
		}
		if err := b.CreateFile(ctx, "photos/cat.jpg", strings.NewReader("cat")); err != nil {
			t.Errorf("expected file path to be free after delete, got %v", err)
		}
	})

	t.Run("DeleteDirMissing", func(t *testing.T) {
		b := factory(t)

		if err := b.DeleteDir(ctx, "missing/"); err != nil {
			t.Errorf("expected deleting a missing directory to be a no-op, got %v", err)
		}
	})

	t.Run("HealthCheck", func(t *testing.T) {
		b := factory(t)

		if err := b.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck failed: %v", err)
		}
	})
}
