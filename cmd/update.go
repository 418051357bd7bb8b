package cmd

import (
	"fmt"

	"fernspiel/internal/installer"
	"fernspiel/internal/launch"
	"fernspiel/internal/platform"
	"fernspiel/internal/resolver"
	"fernspiel/pkg/logging"

	"github.com/spf13/cobra"
)

var updateCheckOnly bool

// newUpdateCmd creates the command that replaces an outdated installed runtime.
func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the installed fernspielapparat runtime",
		Long: `Checks for the latest release of fernspielapparat on GitHub and
replaces the installed runtime if a newer version is found.

A runtime found on the search path is never modified.`,
		Args: cobra.NoArgs,
		RunE: runUpdate,
	}
	cmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Only report whether an update is available")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := platform.Current()
	res := resolver.New(p, cfg.InstallDir, cfg.VersionProbeTimeout)

	current := ""
	if version, err := res.QueryVersion(ctx, res.InstalledPath()); err == nil {
		current = version.Number
		printf(cmd, "Installed version: %s\n", current)
	} else {
		logging.Debug("CLI", "Installed runtime did not report a version: %v", err)
		printf(cmd, "No working runtime installed at %s\n", res.InstalledPath())
	}

	releases := installer.NewGitHubReleases(cfg.Release.Repository, cfg.Release.Prerelease, cfg.Release.ChecksumAsset)
	var latest installer.Release
	err := withSpinner(cmd, "Checking for updates...", "Failed to check for updates", func() error {
		var err error
		latest, err = releases.ResolveRelease(ctx, p)
		return err
	})
	if err != nil {
		return err
	}

	newer, err := latest.NewerThan(current)
	if err != nil {
		return fmt.Errorf("cannot compare versions: %w", err)
	}
	if !newer {
		printf(cmd, "Installed version is the latest.\n")
		return nil
	}

	printf(cmd, "Found newer version: %s (published at %s)\n", latest.Version, latest.PublishedAt.Format("2006-01-02"))
	if updateCheckOnly {
		return nil
	}

	inst := launch.NewInstaller(cfg, p)
	var result installer.Installation
	err = withSpinner(cmd, "Updating fernspielapparat...", "Update failed", func() error {
		var err error
		result, err = inst.InstallRelease(ctx, latest)
		return err
	})
	if err != nil {
		return err
	}

	printf(cmd, "Successfully updated to version %s\n", result.Version)
	return nil
}
