package telemetry

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	// Enabled indicates whether tracing is enabled.
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// ServiceName is the name reported to the trace backend.
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`

	// ServiceVersion is the version of the service.
	ServiceVersion string `mapstructure:"service_version" json:"service_version" yaml:"service_version"`

	// Endpoint is the OTLP gRPC endpoint (e.g. "localhost:4317").
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS on the exporter connection.
	Insecure bool `mapstructure:"insecure" json:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate between 0.0 and 1.0.
	SampleRate float64 `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`

	// Profiling holds the continuous profiling settings.
	Profiling ProfilingConfig `mapstructure:"profiling" json:"profiling" yaml:"profiling"`
}

// DefaultConfig returns the default telemetry configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "vaultfs",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
		Profiling: ProfilingConfig{
			Enabled:      false,
			ServiceName:  "vaultfs",
			Endpoint:     "http://localhost:4040",
			ProfileTypes: []string{"cpu", "inuse_space", "goroutines"},
		},
	}
}
