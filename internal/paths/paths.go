package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "fernspiel"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for installed executables.
	DefaultExecMode os.FileMode = 0755
)

// Default directory for configuration files.
//
//	Linux:   $XDG_CONFIG_HOME/fernspiel or ~/.config/fernspiel
//	macOS:   ~/Library/Application Support/fernspiel
//	Windows: %LOCALAPPDATA%\fernspiel
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// Default install directory of the runtime executable. It persists across
// runs so a relaunch does not download again.
//
//	Linux:   $XDG_DATA_HOME/fernspiel/runtime or ~/.local/share/fernspiel/runtime
//	macOS:   ~/Library/Application Support/fernspiel/runtime
//	Windows: %LOCALAPPDATA%\fernspiel\runtime
func InstallDir() string {
	return filepath.Join(xdg.DataHome, appName, "runtime")
}

// Directory for temporary downloads. Falls back to the OS temp dir when the
// cache home is not set.
func DownloadDir() string {
	if xdg.CacheHome != "" {
		return filepath.Join(xdg.CacheHome, appName, "downloads")
	}
	return filepath.Join(os.TempDir(), appName)
}

// History file of the interactive console.
func ConsoleHistoryFile() string {
	return filepath.Join(xdg.StateHome, appName, "console_history")
}
