package telemetry

import (
	"fmt"
	"runtime"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig contains configuration for Pyroscope continuous
// profiling.
type ProfilingConfig struct {
	// Enabled controls whether profiling is active.
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// ServiceName is the application name shown in Pyroscope.
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`

	// ServiceVersion is the application version tag.
	ServiceVersion string `mapstructure:"service_version" json:"service_version" yaml:"service_version"`

	// Endpoint is the Pyroscope server URL (e.g. "http://localhost:4040").
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	// ProfileTypes selects which profiles to collect. Valid values:
	// cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	// goroutines, mutex_count, mutex_duration, block_count, block_duration.
	ProfileTypes []string `mapstructure:"profile_types" json:"profile_types" yaml:"profile_types"`
}

var (
	profiler         *pyroscope.Profiler
	profilingEnabled bool
)

// InitProfiling starts Pyroscope continuous profiling. The returned
// shutdown function stops the profiler.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	if !cfg.Enabled {
		profilingEnabled = false
		return func() error { return nil }, nil
	}

	profilingEnabled = true

	profileTypes := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, pt := range cfg.ProfileTypes {
		profileType, err := parseProfileType(pt)
		if err != nil {
			return nil, fmt.Errorf("invalid profile type %q: %w", pt, err)
		}
		profileTypes = append(profileTypes, profileType)

		// Mutex/block profiles need their runtime samplers armed.
		switch pt {
		case "mutex_count", "mutex_duration":
			runtime.SetMutexProfileFraction(5)
		case "block_count", "block_duration":
			runtime.SetBlockProfileRate(5)
		}
	}

	profiler, err = pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            map[string]string{"version": cfg.ServiceVersion},
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	return func() error {
		if profiler != nil {
			return profiler.Stop()
		}
		return nil
	}, nil
}

// IsProfilingEnabled returns whether profiling is enabled.
func IsProfilingEnabled() bool {
	return profilingEnabled
}

func parseProfileType(pt string) (pyroscope.ProfileType, error) {
	switch pt {
	case "cpu":
		return pyroscope.ProfileCPU, nil
	case "alloc_objects":
		return pyroscope.ProfileAllocObjects, nil
	case "alloc_space":
		return pyroscope.ProfileAllocSpace, nil
	case "inuse_objects":
		return pyroscope.ProfileInuseObjects, nil
	case "inuse_space":
		return pyroscope.ProfileInuseSpace, nil
	case "goroutines":
		return pyroscope.ProfileGoroutines, nil
	case "mutex_count":
		return pyroscope.ProfileMutexCount, nil
	case "mutex_duration":
		return pyroscope.ProfileMutexDuration, nil
	case "block_count":
		return pyroscope.ProfileBlockCount, nil
	case "block_duration":
		return pyroscope.ProfileBlockDuration, nil
	default:
		return pyroscope.ProfileCPU, fmt.Errorf("unknown profile type: %s", pt)
	}
}
