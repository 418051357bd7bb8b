package installer

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"fernspiel/internal/failure"
	"fernspiel/internal/platform"
	"fernspiel/pkg/logging"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
)

// Release is a downloadable runtime build for one platform.
type Release struct {
	Version     string
	URL         string
	AssetName   string
	ChecksumURL string // empty when the release is not validated
	PublishedAt time.Time
}

// ReleaseResolver finds the latest release archive for a platform.
type ReleaseResolver interface {
	ResolveRelease(ctx context.Context, p platform.Descriptor) (Release, error)
}

var routeSelfUpdateLogs sync.Once

// GitHubReleases resolves releases published on GitHub.
type GitHubReleases struct {
	Repository string // owner/repo
	Prerelease bool

	// ChecksumAsset names the checksum file that must accompany the archive.
	// Empty disables validation.
	ChecksumAsset string

	// Source overrides the GitHub API client, mostly for tests.
	Source selfupdate.Source
}

// NewGitHubReleases creates a release resolver for the given repository.
func NewGitHubReleases(repository string, prerelease bool, checksumAsset string) *GitHubReleases {
	routeSelfUpdateLogs.Do(func() {
		selfupdate.SetLogger(logging.SelfUpdateLogger(subsystem))
	})
	return &GitHubReleases{
		Repository:    repository,
		Prerelease:    prerelease,
		ChecksumAsset: checksumAsset,
	}
}

// Validator returns the integrity validator matching ChecksumAsset, or nil.
func (g *GitHubReleases) Validator() selfupdate.Validator {
	if g.ChecksumAsset == "" {
		return nil
	}
	return &selfupdate.ChecksumValidator{UniqueFilename: g.ChecksumAsset}
}

// ResolveRelease picks the newest release carrying a .tar.gz archive built
// for the platform's target triple.
func (g *GitHubReleases) ResolveRelease(ctx context.Context, p platform.Descriptor) (Release, error) {
	if p.ReleaseTarget == "" {
		return Release{}, failure.Newf(failure.DownloadFailed, stage, "no runtime releases are published for %s", p)
	}

	source := g.Source
	if source == nil {
		gh, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
		if err != nil {
			return Release{}, failure.New(failure.DownloadFailed, stage, err)
		}
		source = gh
	}

	cfg := selfupdate.Config{
		Source:     source,
		Validator:  g.Validator(),
		Filters:    []string{assetFilter(p)},
		OS:         p.OS,
		Arch:       p.Arch,
		Prerelease: g.Prerelease,
	}
	if p.Arch == "arm" {
		// Releases are armv7 only; keeps the updater from inspecting our own binary.
		cfg.Arm = 7
	}
	updater, err := selfupdate.NewUpdater(cfg)
	if err != nil {
		return Release{}, failure.New(failure.DownloadFailed, stage, err)
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(g.Repository))
	if err != nil {
		return Release{}, failure.New(failure.DownloadFailed, stage, fmt.Errorf("error detecting latest release of %s: %w", g.Repository, err))
	}
	if !found {
		return Release{}, failure.Newf(failure.DownloadFailed, stage, "no release of %s found for %s", g.Repository, p.ReleaseTarget)
	}

	return Release{
		Version:     latest.Version(),
		URL:         latest.AssetURL,
		AssetName:   latest.AssetName,
		ChecksumURL: latest.ValidationAssetURL,
		PublishedAt: latest.PublishedAt,
	}, nil
}

// assetFilter matches archive names such as
// "fernspielapparat-0.3.1-x86_64-unknown-linux-gnu.tar.gz".
func assetFilter(p platform.Descriptor) string {
	return regexp.QuoteMeta(p.ReleaseTarget) + `\.(tar\.gz|tgz)$`
}

// NewerThan reports whether the release is newer than installed. An
// installed version that is not a semantic version is always outdated.
func (r Release) NewerThan(installed string) (bool, error) {
	latest, err := semver.NewVersion(r.Version)
	if err != nil {
		return false, fmt.Errorf("release version %q: %w", r.Version, err)
	}
	current, err := semver.NewVersion(installed)
	if err != nil {
		return true, nil
	}
	return latest.GreaterThan(current), nil
}
