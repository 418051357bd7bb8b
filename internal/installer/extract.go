package installer

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fernspiel/internal/failure"
	"fernspiel/internal/paths"
	"fernspiel/internal/platform"
	"fernspiel/pkg/logging"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/klauspost/compress/gzip"
)

// Extract unpacks the runtime executable from a gzip-compressed tar archive
// into dir under the platform's canonical name and returns its path.
//
// The first regular entry whose name ends in one of the known executable
// names is extracted. Every other entry is skipped without touching disk.
func Extract(archive io.Reader, dir string, p platform.Descriptor) (string, error) {
	gz, err := gzip.NewReader(archive)
	if err != nil {
		return "", failure.New(failure.ExtractFailed, stage, fmt.Errorf("failed to decompress archive: %w", err))
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", failure.New(failure.ExtractFailed, stage, fmt.Errorf("failed to read archive: %w", err))
		}

		if !isExecutableEntry(hdr, p) {
			logging.Debug(subsystem, "Skipping archive entry %s", hdr.Name)
			continue
		}

		target := filepath.Join(dir, p.ExecutableName())
		if err := writeExecutable(tr, target); err != nil {
			return "", failure.New(failure.ExtractFailed, stage, err)
		}
		logging.Info(subsystem, "Extracted %s to %s", hdr.Name, target)
		return target, nil
	}

	return "", failure.New(failure.ExtractFailed, stage,
		fmt.Errorf("%w in archive: expected an entry named %s", selfupdate.ErrExecutableNotFoundInArchive, strings.Join(p.ExecutableNames(), " or ")))
}

func isExecutableEntry(hdr *tar.Header, p platform.Descriptor) bool {
	if hdr.Typeflag != tar.TypeReg {
		return false
	}
	for _, name := range p.ExecutableNames() {
		if strings.HasSuffix(hdr.Name, name) {
			return true
		}
	}
	return false
}

// writeExecutable writes r to a temporary file next to target and renames it
// into place, so an interrupted extraction never leaves a truncated runtime.
func writeExecutable(r io.Reader, target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("failed to create install directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".extract-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write executable: %w", err)
	}
	if err := os.Chmod(tmpName, paths.DefaultExecMode); err != nil {
		return fmt.Errorf("failed to make executable: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to move executable into place: %w", err)
	}
	return nil
}
