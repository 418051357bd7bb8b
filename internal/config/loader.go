package config

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"fernspiel/internal/paths"
	"fernspiel/pkg/logging"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// DefaultConfigPath returns the directory config.yaml is read from when no
// --config-path is given.
func DefaultConfigPath() string {
	return paths.ConfigDir()
}

// LoadConfig loads configuration from the given directory. A missing
// config.yaml yields the defaults; fields absent from the file keep their
// default values.
func LoadConfig(configPath string) (Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, newFileError(configFilePath, "io", err)
	}

	// Unknown keys are rejected so settings the runtime cannot honour do not
	// pass silently.
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, newFileError(configFilePath, "parse", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, newFileError(configFilePath, "validation", err)
	}

	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// applyDefaults fills values explicitly emptied in the file.
func (c *Config) applyDefaults() {
	def := GetDefaultConfig()
	if c.InstallDir == "" {
		c.InstallDir = def.InstallDir
	}
	if c.Release.Repository == "" {
		c.Release.Repository = def.Release.Repository
	}
	if c.Server.AdvertiseHost == "" {
		c.Server.AdvertiseHost = def.Server.AdvertiseHost
	}
	if len(c.Server.Args) == 0 {
		c.Server.Args = def.Server.Args
	}
	if c.Readiness.Interval == 0 {
		c.Readiness.Interval = def.Readiness.Interval
	}
	if c.Readiness.Timeout == 0 {
		c.Readiness.Timeout = def.Readiness.Timeout
	}
	if c.VersionProbeTimeout == 0 {
		c.VersionProbeTimeout = def.VersionProbeTimeout
	}
	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = def.ShutdownGrace
	}
}

// BindAddress is the host:port the runtime listens on.
func (c Config) BindAddress() string {
	return net.JoinHostPort(BindHost, strconv.Itoa(ControlPort))
}

// AdvertiseAddress is the host:port clients connect to.
func (c Config) AdvertiseAddress() string {
	return net.JoinHostPort(c.Server.AdvertiseHost, strconv.Itoa(ControlPort))
}

// ControlURL is the websocket URL of the runtime's control endpoint.
func (c Config) ControlURL() string {
	return "ws://" + c.AdvertiseAddress()
}
