package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"fernspiel/internal/failure"
	"fernspiel/internal/platform"
	"fernspiel/pkg/logging"
)

const (
	subsystem = "Resolver"
	stage     = "resolver"
)

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Version is the answer of the runtime to a version query.
type Version struct {
	Name   string
	Number string
}

func (v Version) String() string {
	return v.Name + " " + v.Number
}

// ParseVersion parses "<name> <version>". Any output that does not split
// into exactly two whitespace-separated tokens is a VersionUnparseable
// failure.
func ParseVersion(output string) (Version, error) {
	fields := strings.Fields(output)
	if len(fields) != 2 {
		return Version{}, failure.Newf(failure.VersionUnparseable, stage,
			"expected \"<name> <version>\", got %d tokens in %q", len(fields), strings.TrimSpace(output))
	}
	return Version{Name: fields[0], Number: fields[1]}, nil
}

// Binary is a runtime executable the launcher can spawn.
type Binary struct {
	// Path is the bare executable name when FromSearchPath is set, an
	// absolute path otherwise.
	Path           string
	FromSearchPath bool

	// Version is known when the binary answered a version query.
	Version *Version
}

func (b Binary) String() string {
	if b.FromSearchPath {
		return b.Path + " (search path)"
	}
	return b.Path
}

// Resolver decides which runtime executable to use.
type Resolver struct {
	Platform     platform.Descriptor
	InstallDir   string
	ProbeTimeout time.Duration
}

// New creates a resolver for the given install directory.
func New(p platform.Descriptor, installDir string, probeTimeout time.Duration) *Resolver {
	return &Resolver{
		Platform:     p,
		InstallDir:   installDir,
		ProbeTimeout: probeTimeout,
	}
}

// InstalledPath is where an installed runtime is expected.
func (r *Resolver) InstalledPath() string {
	return filepath.Join(r.InstallDir, r.Platform.ExecutableName())
}

// Resolve prefers a runtime on the search path that answers a version query,
// then an executable in the install directory. When neither is usable it
// returns a NotFound failure, which callers treat as a request to install.
func (r *Resolver) Resolve(ctx context.Context) (Binary, error) {
	name := r.Platform.ExecutableName()

	version, probeErr := r.QueryVersion(ctx, name)
	if probeErr == nil {
		logging.Info(subsystem, "Using %s from search path (%s)", name, version)
		return Binary{Path: name, FromSearchPath: true, Version: &version}, nil
	}
	logging.Debug(subsystem, "Search path runtime not usable: %v", probeErr)

	installed := r.InstalledPath()
	checkErr := CheckExecutable(installed, r.Platform)
	if checkErr == nil {
		logging.Info(subsystem, "Using installed runtime at %s", installed)
		return Binary{Path: installed}, nil
	}
	logging.Debug(subsystem, "Installed runtime not usable: %v", checkErr)

	return Binary{}, failure.New(failure.NotFound, stage, errors.Join(probeErr, checkErr))
}

// QueryVersion runs "<path> --version" and parses the combined output.
func (r *Resolver) QueryVersion(ctx context.Context, path string) (Version, error) {
	if r.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ProbeTimeout)
		defer cancel()
	}

	cmd := execCommandContext(ctx, path, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Version{}, failure.Newf(failure.NotFound, stage, "%s --version exited with code %d", path, exitErr.ExitCode())
		}
		return Version{}, failure.New(failure.NotFound, stage, err)
	}
	return ParseVersion(string(output))
}

// CheckExecutable verifies that path is a readable regular file and, where
// the platform supports it, carries an execute bit.
func CheckExecutable(path string, p platform.Descriptor) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", path, err)
	}
	f.Close()

	if p.CheckExecBit && info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
