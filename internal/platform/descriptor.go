package platform

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// BaseName is the runtime executable name without platform suffix.
const BaseName = "fernspielapparat"

// Descriptor describes the host properties that influence how the runtime is
// located, installed and launched. It is computed once and never mutated.
type Descriptor struct {
	OS   string
	Arch string

	// ExeSuffix is appended to BaseName to form the canonical executable name.
	ExeSuffix string

	// CheckExecBit reports whether the execute permission bit is meaningful.
	// Windows permission checks for execution are unreliable.
	CheckExecBit bool

	// CaseInsensitiveEnv reports whether environment keys compare
	// case-insensitively (Windows "Path" vs "PATH").
	CaseInsensitiveEnv bool

	// LibraryPathVar is the dynamic library search variable, with entries
	// separated by ListSeparator.
	LibraryPathVar string
	ListSeparator  string

	// PluginPathVar points the media engine at its plugin directory.
	PluginPathVar string

	// DefaultLibraryDir and DefaultPluginDir are well-known install locations
	// of the media engine. Empty when the platform has none.
	DefaultLibraryDir string
	DefaultPluginDir  string

	// ReleaseTarget is the target triple release archives are named after.
	// Empty when no release is published for the platform.
	ReleaseTarget string
}

// ExecutableName returns the canonical runtime executable name.
func (d Descriptor) ExecutableName() string {
	return BaseName + d.ExeSuffix
}

// ExecutableNames returns every name a runtime executable may carry inside a
// release archive, regardless of the host platform.
func (d Descriptor) ExecutableNames() []string {
	return []string{BaseName, BaseName + ".exe"}
}

// IsWindows reports whether the descriptor describes a Windows host.
func (d Descriptor) IsWindows() bool {
	return d.OS == "windows"
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s/%s", d.OS, d.Arch)
}

var current = sync.OnceValue(func() Descriptor {
	return For(runtime.GOOS, runtime.GOARCH)
})

// Current returns the descriptor of the host. The value is derived once per
// process.
func Current() Descriptor {
	return current()
}

// For builds the descriptor for an arbitrary OS and architecture.
func For(goos, goarch string) Descriptor {
	d := Descriptor{
		OS:            goos,
		Arch:          goarch,
		CheckExecBit:  true,
		ListSeparator: ":",
		PluginPathVar: "VLC_PLUGIN_PATH",
		ReleaseTarget: releaseTarget(goos, goarch),
	}

	switch goos {
	case "windows":
		d.ExeSuffix = ".exe"
		d.CheckExecBit = false
		d.CaseInsensitiveEnv = true
		d.LibraryPathVar = "PATH"
		d.ListSeparator = ";"
		d.DefaultLibraryDir = `C:\Program Files\VideoLAN\VLC`
		d.DefaultPluginDir = `C:\Program Files\VideoLAN\VLC\plugins`
	case "darwin":
		d.LibraryPathVar = "DYLD_LIBRARY_PATH"
		d.DefaultLibraryDir = "/Applications/VLC.app/Contents/MacOS/lib"
		d.DefaultPluginDir = "/Applications/VLC.app/Contents/MacOS/plugins"
	default:
		// libvlc comes from the system package manager, which already
		// registers it with the dynamic loader.
		d.LibraryPathVar = "LD_LIBRARY_PATH"
	}

	return d
}

func releaseTarget(goos, goarch string) string {
	var arch string
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "arm":
		arch = "armv7"
	case "386":
		arch = "i686"
	default:
		return ""
	}

	switch goos {
	case "linux":
		if arch == "armv7" {
			return arch + "-unknown-linux-gnueabihf"
		}
		return arch + "-unknown-linux-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		if arch == "armv7" {
			return ""
		}
		return arch + "-pc-windows-msvc"
	default:
		return ""
	}
}

// EqualFold compares environment keys the way the platform does.
func (d Descriptor) EqualFold(a, b string) bool {
	if d.CaseInsensitiveEnv {
		return strings.EqualFold(a, b)
	}
	return a == b
}
