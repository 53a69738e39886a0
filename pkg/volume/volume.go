// Package volume defines the storage backend interface for catalog
// volumes and the registry that maps a volume's backend type key to an
// implementation.
//
// Backends store physical objects under slash-separated paths that mirror
// the catalog's materialized folder paths ("a/b/" for folders,
// "a/b/photo.jpg" for assets). The catalog only ever writes, renames, and
// deletes through this interface; reads go through whatever access path
// the backend exposes natively.
package volume

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrAlreadyExists is returned when a create hits an object that is
	// already present in the backend.
	ErrAlreadyExists = errors.New("object already exists")

	// ErrNotFound is returned when an operation addresses an object that
	// does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("volume backend is closed")
)

// Backend is a physical storage target for one volume.
//
// DeleteFile and DeleteDir are idempotent: deleting something that is not
// there returns nil. CreateFile and CreateDir report ErrAlreadyExists
// when the path is taken, RenameFile reports ErrNotFound for a missing
// source and ErrAlreadyExists for an occupied destination.
type Backend interface {
	// CreateFile stores the contents of r at path.
	CreateFile(ctx context.Context, path string, r io.Reader) error

	// DeleteFile removes the object at path.
	DeleteFile(ctx context.Context, path string) error

	// RenameFile moves an object to a new path.
	RenameFile(ctx context.Context, oldPath, newPath string) error

	// CreateDir creates a directory (or the backend's marker for one).
	CreateDir(ctx context.Context, path string) error

	// DeleteDir removes a directory and everything stored under it.
	DeleteDir(ctx context.Context, path string) error

	// Local reports whether objects in this backend are directly readable
	// from the local filesystem. Non-local volumes need a working copy in
	// the transform source cache for derivative generation.
	Local() bool

	// HealthCheck verifies the backend is reachable and operational.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
