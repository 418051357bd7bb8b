package config

import "time"

// Config is the top-level configuration structure for fernspiel.
type Config struct {
	// InstallDir is where the runtime executable is installed and looked up.
	InstallDir string `yaml:"installDir,omitempty"`

	Release   ReleaseConfig   `yaml:"release"`
	Server    ServerConfig    `yaml:"server"`
	Readiness ReadinessConfig `yaml:"readiness"`

	// VersionProbeTimeout bounds the "<exe> --version" query.
	VersionProbeTimeout time.Duration `yaml:"versionProbeTimeout,omitempty"`

	// ShutdownGrace is how long a terminated runtime gets before it is killed.
	ShutdownGrace time.Duration `yaml:"shutdownGrace,omitempty"`

	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ReleaseConfig selects where runtime releases are discovered.
type ReleaseConfig struct {
	Repository string `yaml:"repository,omitempty"` // GitHub owner/repo
	Prerelease bool   `yaml:"prerelease,omitempty"` // Whether pre-releases may be installed

	// ChecksumAsset names the release asset listing SHA-256 sums of the
	// archives. Empty disables integrity validation.
	ChecksumAsset string `yaml:"checksumAsset,omitempty"`
}

// ServerConfig describes how the runtime is started and reached. The runtime
// always listens on BindAddress; only the host clients use to reach it is
// configurable.
type ServerConfig struct {
	AdvertiseHost string   `yaml:"advertiseHost,omitempty"` // Address clients connect to
	Args          []string `yaml:"args,omitempty"`          // Runtime arguments selecting server mode
}

// ReadinessConfig controls polling of the control port after spawning.
type ReadinessConfig struct {
	Interval time.Duration `yaml:"interval,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint of the launch command.
type MetricsConfig struct {
	Address string `yaml:"address,omitempty"` // e.g. "127.0.0.1:9397"; empty disables
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}
