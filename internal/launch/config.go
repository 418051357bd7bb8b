package launch

import (
	"fernspiel/internal/config"
	"fernspiel/internal/installer"
	"fernspiel/internal/metrics"
	"fernspiel/internal/platform"
	"fernspiel/internal/resolver"
	"fernspiel/internal/supervisor"
)

// FromConfig wires a Launcher with the production resolver, installer and
// supervisor for the host platform.
func FromConfig(cfg config.Config, recorder metrics.Recorder) *Launcher {
	p := platform.Current()
	return &Launcher{
		Platform:      p,
		Resolver:      resolver.New(p, cfg.InstallDir, cfg.VersionProbeTimeout),
		Installer:     NewInstaller(cfg, p),
		Supervisor:    supervisor.New(cfg.ShutdownGrace),
		Args:          cfg.Server.Args,
		ProbeAddress:  cfg.AdvertiseAddress(),
		URL:           cfg.ControlURL(),
		ProbeInterval: cfg.Readiness.Interval,
		ProbeTimeout:  cfg.Readiness.Timeout,
		Metrics:       recorder,
	}
}

// NewInstaller creates the GitHub release installer described by cfg.
func NewInstaller(cfg config.Config, p platform.Descriptor) *installer.Installer {
	releases := installer.NewGitHubReleases(cfg.Release.Repository, cfg.Release.Prerelease, cfg.Release.ChecksumAsset)
	return installer.New(p, cfg.InstallDir, releases)
}
