// Package badger provides a volume backend on an embedded BadgerDB
// key-value store. Files live under the "f:" keyspace and directory
// markers under "d:", so a single prefix scan per keyspace covers
// recursive deletes.
package badger

import (
	"context"
	"errors"
	"fmt"
	"io"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/vaultfs/pkg/volume"
)

func init() {
	volume.MustRegister("badger", func(_ context.Context, raw map[string]any) (volume.Backend, error) {
		var cfg Config
		if err := mapstructure.Decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid badger volume config: %w", err)
		}
		return New(cfg)
	})
}

// deleteBatchSize bounds the number of keys deleted per transaction so
// recursive deletes never hit ErrTxnTooBig.
const deleteBatchSize = 1000

// Config holds configuration for the badger backend.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory keeps all data in memory, for tests.
	InMemory bool `mapstructure:"in_memory"`
}

// Backend is a BadgerDB-backed implementation of volume.Backend.
type Backend struct {
	db *badgerdb.DB
}

// New opens (or creates) the badger database.
func New(cfg Config) (*Backend, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("path is required")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Backend{db: db}, nil
}

func fileKey(path string) []byte {
	return []byte("f:" + path)
}

func dirKey(path string) []byte {
	return []byte("d:" + path)
}

// CreateFile stores the contents of r under the file key for path.
func (b *Backend) CreateFile(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		key := fileKey(path)
		_, err := txn.Get(key)
		if err == nil {
			return volume.ErrAlreadyExists
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// DeleteFile removes the object at path. Deleting a missing key is a
// no-op in badger.
func (b *Backend) DeleteFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(fileKey(path))
	})
}

// RenameFile moves the value to the new key in a single transaction.
func (b *Backend) RenameFile(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		oldKey := fileKey(oldPath)
		newKey := fileKey(newPath)

		item, err := txn.Get(oldKey)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return volume.ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := txn.Get(newKey); err == nil {
			return volume.ErrAlreadyExists
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(newKey, data); err != nil {
			return err
		}
		return txn.Delete(oldKey)
	})
}

// CreateDir stores an empty marker under the directory key for path.
func (b *Backend) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		key := dirKey(path)
		_, err := txn.Get(key)
		if err == nil {
			return volume.ErrAlreadyExists
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, nil)
	})
}

// DeleteDir removes the directory marker and every file and directory
// key under the path prefix.
func (b *Backend) DeleteDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var keys [][]byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false

		for _, prefix := range [][]byte{fileKey(path), dirKey(path)} {
			it := txn.NewIterator(opts)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return err
	}

	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		err := b.db.Update(func(txn *badgerdb.Txn) error {
			for _, key := range batch {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to delete keys under %q: %w", path, err)
		}
	}

	return nil
}

// Local reports false: objects live inside the database file, not as
// directly readable files.
func (b *Backend) Local() bool {
	return false
}

// HealthCheck verifies the database accepts reads.
func (b *Backend) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db.IsClosed() {
		return volume.ErrClosed
	}
	return b.db.View(func(txn *badgerdb.Txn) error { return nil })
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

var _ volume.Backend = (*Backend)(nil)
