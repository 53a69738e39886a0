package config

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/api"
	"github.com/marmos91/vaultfs/pkg/catalog"
	"github.com/marmos91/vaultfs/pkg/catalog/models"
	"github.com/marmos91/vaultfs/pkg/catalog/store"
	"github.com/marmos91/vaultfs/pkg/metrics/prometheus"
	"github.com/marmos91/vaultfs/pkg/transform"
	"github.com/marmos91/vaultfs/pkg/volume"
)

// InitializeCatalog creates a fully configured catalog service from the
// provided configuration.
//
// This function orchestrates the complete initialization process:
//  1. Opens the catalog database from cfg.Database
//  2. Creates the transform working-copy cache from cfg.Transform
//  3. Wires the volume backend manager, authorizer and metrics
//  4. Registers all volumes declared in cfg.Volumes
//
// The resulting service owns the store and the backend manager; shut it
// down with service.Volumes().Close() and service.Store().Close().
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete configuration loaded from config file
//
// Returns:
//   - *catalog.Service: Fully initialized catalog service
//   - error: If the store cannot be opened, the transform cache cannot be
//     created, or a declared volume is invalid
func InitializeCatalog(ctx context.Context, cfg *Config) (*catalog.Service, error) {
	logger.Debug("Initializing catalog from configuration")

	st, err := store.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}
	logger.Info("Catalog store opened", "type", cfg.Database.Type)

	transforms, err := transform.NewLocalSourceCache(cfg.Transform.CacheDir)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to create transform cache: %w", err)
	}

	service, err := catalog.NewService(catalog.ServiceConfig{
		Store:      st,
		Volumes:    volume.NewManager(),
		Authorizer: api.ClaimsAuthorizer{},
		Transforms: transforms,
		Metrics:    prometheus.NewCatalogMetrics(),
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to create catalog service: %w", err)
	}

	if err := EnsureVolumes(ctx, st, cfg.Volumes); err != nil {
		_ = st.Close()
		return nil, err
	}

	return service, nil
}

// EnsureVolumes registers every declared volume that does not exist yet.
//
// Existing volumes are matched by name and left untouched, so the config
// section stays idempotent across restarts. A declared volume whose
// stored counterpart uses a different backend is reported but not
// modified; resolving the conflict is an operator decision.
func EnsureVolumes(ctx context.Context, st *store.GORMStore, volumes []VolumeConfig) error {
	registered := 0

	for i, volCfg := range volumes {
		// Validate volume configuration
		if volCfg.Name == "" {
			return fmt.Errorf("volume #%d: name cannot be empty", i+1)
		}
		if volCfg.Backend == "" {
			return fmt.Errorf("volume %q: backend cannot be empty", volCfg.Name)
		}
		if !slices.Contains(volume.Backends(), volCfg.Backend) {
			return fmt.Errorf("volume %q: unknown backend type %q", volCfg.Name, volCfg.Backend)
		}

		existing, err := st.GetVolumeByName(ctx, volCfg.Name)
		if err != nil && !errors.Is(err, models.ErrVolumeNotFound) {
			return fmt.Errorf("failed to look up volume %q: %w", volCfg.Name, err)
		}
		if existing != nil {
			if existing.Backend != volCfg.Backend {
				logger.Warn("Declared volume exists with a different backend, keeping the stored one",
					"name", volCfg.Name, "declared", volCfg.Backend, "stored", existing.Backend)
			}
			logger.Debug("Volume already registered", "name", volCfg.Name)
			continue
		}

		vol := &models.Volume{
			Name:      volCfg.Name,
			Backend:   volCfg.Backend,
			SortOrder: volCfg.SortOrder,
		}
		if err := vol.SetConfig(volCfg.Config); err != nil {
			return fmt.Errorf("volume %q: invalid backend config: %w", volCfg.Name, err)
		}

		if _, err := st.CreateVolume(ctx, vol); err != nil {
			return fmt.Errorf("failed to create volume %q: %w", volCfg.Name, err)
		}

		logger.Info("Volume registered", "name", volCfg.Name, "backend", volCfg.Backend)
		registered++
	}

	if registered > 0 {
		logger.Info("Registered declared volumes", logger.Count(registered))
	}

	return nil
}
