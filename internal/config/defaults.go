package config

import (
	"time"

	"fernspiel/internal/paths"
)

const (
	// DefaultRepository publishes the runtime releases.
	DefaultRepository = "krachzack/fernspielapparat"

	// ControlPort is the port the runtime binds in server mode. It is fixed
	// by the runtime and cannot be changed from the command line.
	ControlPort = 38397

	// BindHost is the address the runtime listens on.
	BindHost = "0.0.0.0"

	DefaultAdvertiseHost = "127.0.0.1"

	DefaultProbeInterval       = 150 * time.Millisecond
	DefaultProbeTimeout        = 5 * time.Second
	DefaultVersionProbeTimeout = 5 * time.Second
	DefaultShutdownGrace       = 5 * time.Second
)

// DefaultArgs start the runtime in server mode with maximum log verbosity.
func DefaultArgs() []string {
	return []string{"-vvvv", "-s"}
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		InstallDir: paths.InstallDir(),
		Release: ReleaseConfig{
			Repository: DefaultRepository,
		},
		Server: ServerConfig{
			AdvertiseHost: DefaultAdvertiseHost,
			Args:          DefaultArgs(),
		},
		Readiness: ReadinessConfig{
			Interval: DefaultProbeInterval,
			Timeout:  DefaultProbeTimeout,
		},
		VersionProbeTimeout: DefaultVersionProbeTimeout,
		ShutdownGrace:       DefaultShutdownGrace,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
