package installer

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"fernspiel/internal/failure"
	"fernspiel/internal/platform"

	"github.com/containerd/errdefs"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type archiveEntry struct {
	name string
	body string
	dir  bool
}

func makeArchive(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.dir {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestExtract_WritesOnlyExecutable(t *testing.T) {
	p := platform.For("linux", "amd64")
	dir := t.TempDir()
	archive := makeArchive(t,
		archiveEntry{name: "fernspielapparat-0.3.1/", dir: true},
		archiveEntry{name: "fernspielapparat-0.3.1/README.md", body: "readme"},
		archiveEntry{name: "fernspielapparat-0.3.1/LICENSE", body: "license"},
		archiveEntry{name: "fernspielapparat-0.3.1/fernspielapparat", body: "#!/bin/sh\n"},
		archiveEntry{name: "fernspielapparat-0.3.1/examples/demo.yaml", body: "states: {}"},
	)

	path, err := Extract(bytes.NewReader(archive), dir, p)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "fernspielapparat"), path)
	assert.Equal(t, []string{"fernspielapparat"}, listDir(t, dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

func TestExtract_RenamesWindowsExecutable(t *testing.T) {
	p := platform.For("windows", "amd64")
	dir := t.TempDir()
	archive := makeArchive(t,
		archiveEntry{name: "dist/fernspielapparat.exe", body: "MZ"},
		archiveEntry{name: "dist/libvlc.dll", body: "dll"},
	)

	path, err := Extract(bytes.NewReader(archive), dir, p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fernspielapparat.exe"), path)
	assert.Equal(t, []string{"fernspielapparat.exe"}, listDir(t, dir))
}

func TestExtract_FirstMatchWins(t *testing.T) {
	p := platform.For("linux", "amd64")
	dir := t.TempDir()
	archive := makeArchive(t,
		archiveEntry{name: "a/fernspielapparat", body: "first"},
		archiveEntry{name: "b/fernspielapparat", body: "second"},
	)

	path, err := Extract(bytes.NewReader(archive), dir, p)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestExtract_MissingExecutable(t *testing.T) {
	p := platform.For("linux", "amd64")
	dir := t.TempDir()
	archive := makeArchive(t,
		archiveEntry{name: "README.md", body: "readme"},
		archiveEntry{name: "fernspielapparat.d/", dir: true},
	)

	_, err := Extract(bytes.NewReader(archive), dir, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.ExtractFailed)
	assert.ErrorIs(t, err, selfupdate.ErrExecutableNotFoundInArchive)
	assert.Contains(t, err.Error(), "not found in archive")
	assert.Empty(t, listDir(t, dir))
}

func TestExtract_CorruptArchive(t *testing.T) {
	p := platform.For("linux", "amd64")

	_, err := Extract(bytes.NewReader([]byte("definitely not gzip")), t.TempDir(), p)
	assert.ErrorIs(t, err, failure.ExtractFailed)
	assert.True(t, errdefs.IsDataLoss(err))

	var notTar bytes.Buffer
	gz := gzip.NewWriter(&notTar)
	_, err = gz.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	_, err = Extract(&notTar, t.TempDir(), p)
	assert.ErrorIs(t, err, failure.ExtractFailed)
}

// fakeSource serves canned releases to go-selfupdate.
type fakeSource struct {
	releases []selfupdate.SourceRelease
	err      error
}

func (s *fakeSource) ListReleases(ctx context.Context, repository selfupdate.Repository) ([]selfupdate.SourceRelease, error) {
	return s.releases, s.err
}

func (s *fakeSource) DownloadReleaseAsset(ctx context.Context, rel *selfupdate.Release, assetID int64) (io.ReadCloser, error) {
	return nil, errors.New("not supported")
}

type fakeRelease struct {
	tag        string
	prerelease bool
	assets     []selfupdate.SourceAsset
}

func (r *fakeRelease) GetID() int64                         { return 1 }
func (r *fakeRelease) GetTagName() string                   { return r.tag }
func (r *fakeRelease) GetDraft() bool                       { return false }
func (r *fakeRelease) GetPrerelease() bool                  { return r.prerelease }
func (r *fakeRelease) GetPublishedAt() time.Time            { return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC) }
func (r *fakeRelease) GetReleaseNotes() string              { return "" }
func (r *fakeRelease) GetName() string                      { return r.tag }
func (r *fakeRelease) GetURL() string                       { return "https://example.invalid/" + r.tag }
func (r *fakeRelease) GetAssets() []selfupdate.SourceAsset { return r.assets }

type fakeAsset struct {
	id   int64
	name string
	url  string
}

func (a *fakeAsset) GetID() int64                  { return a.id }
func (a *fakeAsset) GetName() string               { return a.name }
func (a *fakeAsset) GetSize() int                  { return 0 }
func (a *fakeAsset) GetBrowserDownloadURL() string { return a.url }

func release(tag string, prerelease bool, names ...string) *fakeRelease {
	r := &fakeRelease{tag: tag, prerelease: prerelease}
	for i, name := range names {
		r.assets = append(r.assets, &fakeAsset{
			id:   int64(i + 1),
			name: name,
			url:  "https://downloads.invalid/" + tag + "/" + name,
		})
	}
	return r
}

func TestGitHubReleases_ResolveRelease(t *testing.T) {
	source := &fakeSource{releases: []selfupdate.SourceRelease{
		release("v0.2.0", false,
			"fernspielapparat-0.2.0-x86_64-unknown-linux-gnu.tar.gz"),
		release("v0.3.1", false,
			"fernspielapparat-0.3.1-x86_64-apple-darwin.tar.gz",
			"fernspielapparat-0.3.1-x86_64-unknown-linux-gnu.tar.gz",
			"fernspielapparat-0.3.1-x86_64-pc-windows-msvc.tar.gz"),
		release("v0.4.0-rc.1", true,
			"fernspielapparat-0.4.0-rc.1-x86_64-unknown-linux-gnu.tar.gz"),
	}}

	tests := []struct {
		name       string
		platform   platform.Descriptor
		prerelease bool
		version    string
		asset      string
	}{
		{"linux", platform.For("linux", "amd64"), false, "0.3.1", "fernspielapparat-0.3.1-x86_64-unknown-linux-gnu.tar.gz"},
		{"darwin", platform.For("darwin", "amd64"), false, "0.3.1", "fernspielapparat-0.3.1-x86_64-apple-darwin.tar.gz"},
		{"windows", platform.For("windows", "amd64"), false, "0.3.1", "fernspielapparat-0.3.1-x86_64-pc-windows-msvc.tar.gz"},
		{"prerelease", platform.For("linux", "amd64"), true, "0.4.0-rc.1", "fernspielapparat-0.4.0-rc.1-x86_64-unknown-linux-gnu.tar.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GitHubReleases{Repository: "krachzack/fernspielapparat", Prerelease: tt.prerelease, Source: source}
			rel, err := g.ResolveRelease(context.Background(), tt.platform)
			require.NoError(t, err)
			assert.Equal(t, tt.version, rel.Version)
			assert.Equal(t, tt.asset, rel.AssetName)
			assert.Contains(t, rel.URL, tt.asset)
			assert.Empty(t, rel.ChecksumURL)
		})
	}
}

func TestGitHubReleases_NoMatchingAsset(t *testing.T) {
	source := &fakeSource{releases: []selfupdate.SourceRelease{
		release("v0.3.1", false, "fernspielapparat-0.3.1-x86_64-unknown-linux-gnu.tar.gz"),
	}}
	g := &GitHubReleases{Repository: "krachzack/fernspielapparat", Source: source}

	_, err := g.ResolveRelease(context.Background(), platform.For("linux", "arm64"))
	assert.ErrorIs(t, err, failure.DownloadFailed)
}

func TestGitHubReleases_UnsupportedPlatform(t *testing.T) {
	g := &GitHubReleases{Repository: "krachzack/fernspielapparat", Source: &fakeSource{}}

	_, err := g.ResolveRelease(context.Background(), platform.For("plan9", "amd64"))
	assert.ErrorIs(t, err, failure.DownloadFailed)
	assert.Contains(t, err.Error(), "plan9/amd64")
}

func TestGitHubReleases_SourceError(t *testing.T) {
	g := &GitHubReleases{Repository: "krachzack/fernspielapparat", Source: &fakeSource{err: errors.New("rate limited")}}

	_, err := g.ResolveRelease(context.Background(), platform.For("linux", "amd64"))
	assert.ErrorIs(t, err, failure.DownloadFailed)
	assert.True(t, errdefs.IsUnavailable(err))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestGitHubReleases_ChecksumAsset(t *testing.T) {
	source := &fakeSource{releases: []selfupdate.SourceRelease{
		release("v0.3.1", false,
			"fernspielapparat-0.3.1-x86_64-unknown-linux-gnu.tar.gz",
			"checksums.txt"),
	}}
	g := &GitHubReleases{Repository: "krachzack/fernspielapparat", ChecksumAsset: "checksums.txt", Source: source}

	rel, err := g.ResolveRelease(context.Background(), platform.For("linux", "amd64"))
	require.NoError(t, err)
	assert.Equal(t, "https://downloads.invalid/v0.3.1/checksums.txt", rel.ChecksumURL)

	g.ChecksumAsset = "SHA256SUMS"
	_, err = g.ResolveRelease(context.Background(), platform.For("linux", "amd64"))
	assert.ErrorIs(t, err, selfupdate.ErrValidationAssetNotFound)
	assert.ErrorIs(t, err, failure.DownloadFailed)
}

// staticReleases always answers with the same release.
type staticReleases struct {
	release Release
	err     error
	calls   int
}

func (s *staticReleases) ResolveRelease(ctx context.Context, p platform.Descriptor) (Release, error) {
	s.calls++
	return s.release, s.err
}

func newTestInstaller(t *testing.T, releases ReleaseResolver) *Installer {
	t.Helper()
	return &Installer{
		Platform:    platform.For("linux", "amd64"),
		InstallDir:  filepath.Join(t.TempDir(), "runtime"),
		Releases:    releases,
		Fetcher:     &HTTPFetcher{},
		DownloadDir: t.TempDir(),
	}
}

func TestInstaller_Install(t *testing.T) {
	archive := makeArchive(t,
		archiveEntry{name: "fernspielapparat-0.3.1/README.md", body: "readme"},
		archiveEntry{name: "fernspielapparat-0.3.1/fernspielapparat", body: "binary"},
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	releases := &staticReleases{release: Release{Version: "0.3.1", URL: server.URL + "/archive.tar.gz", AssetName: "archive.tar.gz"}}
	inst := newTestInstaller(t, releases)

	got, err := inst.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, releases.calls)
	assert.Equal(t, filepath.Join(inst.InstallDir, "fernspielapparat"), got.Path)
	assert.Equal(t, "0.3.1", got.Version)
	assert.Equal(t, []string{"fernspielapparat"}, listDir(t, inst.InstallDir))
	assert.Empty(t, listDir(t, inst.DownloadDir), "temporary archive must be removed")
}

func TestInstaller_DownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	inst := newTestInstaller(t, &staticReleases{release: Release{URL: server.URL + "/missing.tar.gz"}})

	_, err := inst.Install(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.DownloadFailed)
	assert.Contains(t, err.Error(), "404")
	assert.Empty(t, listDir(t, inst.DownloadDir))
}

func TestInstaller_ReleaseResolutionFailure(t *testing.T) {
	resolveErr := failure.Newf(failure.DownloadFailed, stage, "no release")
	inst := newTestInstaller(t, &staticReleases{err: resolveErr})

	_, err := inst.Install(context.Background())
	assert.ErrorIs(t, err, resolveErr)
}

func TestInstaller_ExtractFailureRemovesArchive(t *testing.T) {
	archive := makeArchive(t, archiveEntry{name: "README.md", body: "readme"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	inst := newTestInstaller(t, &staticReleases{release: Release{URL: server.URL}})

	_, err := inst.Install(context.Background())
	assert.ErrorIs(t, err, failure.ExtractFailed)
	assert.Empty(t, listDir(t, inst.DownloadDir))
}

func TestInstaller_Checksum(t *testing.T) {
	archive := makeArchive(t, archiveEntry{name: "fernspielapparat", body: "binary"})
	const assetName = "fernspielapparat-0.3.1-x86_64-unknown-linux-gnu.tar.gz"

	tests := []struct {
		name      string
		checksums string
		wantErr   bool
	}{
		{
			name:      "valid",
			checksums: fmt.Sprintf("%x  %s\n%x  other.tar.gz\n", sha256.Sum256(archive), assetName, sha256.Sum256([]byte("x"))),
		},
		{
			name:      "mismatch",
			checksums: fmt.Sprintf("%x  %s\n", sha256.Sum256([]byte("tampered")), assetName),
			wantErr:   true,
		},
		{
			name:      "missing entry",
			checksums: fmt.Sprintf("%x  other.tar.gz\n", sha256.Sum256(archive)),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) { w.Write(archive) })
			mux.HandleFunc("/checksums.txt", func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, tt.checksums) })
			server := httptest.NewServer(mux)
			defer server.Close()

			inst := newTestInstaller(t, &staticReleases{release: Release{
				Version:     "0.3.1",
				URL:         server.URL + "/archive",
				AssetName:   assetName,
				ChecksumURL: server.URL + "/checksums.txt",
			}})
			inst.Validator = &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"}

			_, err := inst.Install(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, failure.DownloadFailed)
				_, statErr := os.Stat(filepath.Join(inst.InstallDir, "fernspielapparat"))
				assert.True(t, os.IsNotExist(statErr), "nothing may be installed after a failed integrity check")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHTTPFetcher_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	err := (&HTTPFetcher{}).Fetch(ctx, server.URL, &buf)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRelease_NewerThan(t *testing.T) {
	tests := []struct {
		release   string
		installed string
		want      bool
		wantErr   bool
	}{
		{"0.3.1", "0.3.0", true, false},
		{"0.3.1", "0.3.1", false, false},
		{"0.3.1", "v0.4.0", false, false},
		{"0.4.0-rc.1", "0.3.1", true, false},
		{"0.3.1", "unknown", true, false},
		{"garbage", "0.3.1", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.release+"_vs_"+tt.installed, func(t *testing.T) {
			got, err := Release{Version: tt.release}.NewerThan(tt.installed)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
