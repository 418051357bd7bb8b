package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"fernspiel/internal/failure"
	"fernspiel/internal/paths"
	"fernspiel/internal/platform"
	"fernspiel/pkg/logging"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	subsystem = "Installer"
	stage     = "installer"
)

// Installation is a runtime executable written to the install directory.
type Installation struct {
	Path    string
	Version string
}

// Installer downloads the latest runtime release and unpacks it into the
// install directory.
type Installer struct {
	Platform   platform.Descriptor
	InstallDir string
	Releases   ReleaseResolver
	Fetcher    Fetcher

	// Validator checks the archive against the release checksum asset.
	// Validation is skipped when nil or when the release has no checksum URL.
	Validator selfupdate.Validator

	// DownloadDir holds the temporary archive. Defaults to the system
	// temporary directory.
	DownloadDir string
}

// New creates an installer that fetches releases from a GitHub repository.
func New(p platform.Descriptor, installDir string, releases *GitHubReleases) *Installer {
	return &Installer{
		Platform:    p,
		InstallDir:  installDir,
		Releases:    releases,
		Fetcher:     &HTTPFetcher{},
		Validator:   releases.Validator(),
		DownloadDir: paths.DownloadDir(),
	}
}

// Install resolves the latest release, downloads it and extracts the runtime
// executable. The downloaded archive is always removed afterwards.
func (i *Installer) Install(ctx context.Context) (Installation, error) {
	release, err := i.Releases.ResolveRelease(ctx, i.Platform)
	if err != nil {
		return Installation{}, err
	}
	logging.Info(subsystem, "Downloading %s %s from %s", release.AssetName, release.Version, release.URL)
	return i.InstallRelease(ctx, release)
}

// InstallRelease downloads and extracts a specific release.
func (i *Installer) InstallRelease(ctx context.Context, release Release) (Installation, error) {
	archive, err := i.download(ctx, release)
	if err != nil {
		return Installation{}, err
	}
	defer func() {
		archive.Close()
		os.Remove(archive.Name())
	}()

	if err := i.validate(ctx, release, archive); err != nil {
		return Installation{}, err
	}

	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return Installation{}, failure.New(failure.ExtractFailed, stage, err)
	}
	path, err := Extract(archive, i.InstallDir, i.Platform)
	if err != nil {
		return Installation{}, err
	}

	logging.Info(subsystem, "Installed runtime %s at %s", release.Version, path)
	return Installation{Path: path, Version: release.Version}, nil
}

func (i *Installer) download(ctx context.Context, release Release) (*os.File, error) {
	dir := i.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return nil, failure.New(failure.DownloadFailed, stage, fmt.Errorf("failed to create download directory: %w", err))
	}

	f, err := os.CreateTemp(dir, "runtime-*.tar.gz")
	if err != nil {
		return nil, failure.New(failure.DownloadFailed, stage, fmt.Errorf("failed to create temporary archive: %w", err))
	}

	if err := i.Fetcher.Fetch(ctx, release.URL, f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, failure.New(failure.DownloadFailed, stage, err)
	}
	return f, nil
}

func (i *Installer) validate(ctx context.Context, release Release, archive *os.File) error {
	if i.Validator == nil || release.ChecksumURL == "" {
		return nil
	}

	var checksums bytes.Buffer
	if err := i.Fetcher.Fetch(ctx, release.ChecksumURL, &checksums); err != nil {
		return failure.New(failure.DownloadFailed, stage, fmt.Errorf("failed to fetch checksums: %w", err))
	}

	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return failure.New(failure.DownloadFailed, stage, err)
	}
	data, err := io.ReadAll(archive)
	if err != nil {
		return failure.New(failure.DownloadFailed, stage, err)
	}

	if err := i.Validator.Validate(release.AssetName, data, checksums.Bytes()); err != nil {
		return failure.New(failure.DownloadFailed, stage, fmt.Errorf("integrity check of %s failed: %w", release.AssetName, err))
	}
	logging.Debug(subsystem, "Checksum of %s verified", release.AssetName)
	return nil
}
