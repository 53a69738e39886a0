package volume

import (
	"context"
	"sync"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// Manager caches open backends per volume so repeated catalog operations
// against the same volume reuse one connection.
type Manager struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewManager creates an empty backend manager.
func NewManager() *Manager {
	return &Manager{backends: make(map[string]Backend)}
}

// Backend returns the open backend for the volume, opening it on first
// use via the registered driver for the volume's backend type.
func (m *Manager) Backend(ctx context.Context, vol *models.Volume) (Backend, error) {
	m.mu.RLock()
	backend, ok := m.backends[vol.ID]
	m.mu.RUnlock()
	if ok {
		return backend, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have opened it while we waited for the lock.
	if backend, ok := m.backends[vol.ID]; ok {
		return backend, nil
	}

	config, err := vol.GetConfig()
	if err != nil {
		return nil, err
	}

	backend, err = Open(ctx, vol.Backend, config)
	if err != nil {
		return nil, err
	}

	m.backends[vol.ID] = backend
	return backend, nil
}

// Put injects an already-open backend for a volume, mainly for tests.
func (m *Manager) Put(volumeID string, backend Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backends[volumeID] = backend
}

// Invalidate closes and forgets the backend for a volume, forcing a
// reopen on next use. Call after a volume's configuration changes.
func (m *Manager) Invalidate(volumeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if backend, ok := m.backends[volumeID]; ok {
		if err := backend.Close(); err != nil {
			logger.Warn("failed to close volume backend", logger.VolumeID(volumeID), logger.Err(err))
		}
		delete(m.backends, volumeID)
	}
}

// Close closes every cached backend. The first error is returned, but all
// backends are closed regardless.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, backend := range m.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.backends, id)
	}
	return firstErr
}
