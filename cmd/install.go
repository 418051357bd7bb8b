package cmd

import (
	"fernspiel/internal/installer"
	"fernspiel/internal/launch"
	"fernspiel/internal/platform"
	"fernspiel/internal/resolver"

	"github.com/spf13/cobra"
)

var installForce bool

// newInstallCmd creates the command that downloads the runtime into the install directory.
func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the latest fernspielapparat release",
		Long: `Downloads the latest fernspielapparat release for this platform and
installs the runtime executable into the install directory.

An existing installation is left alone unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: runInstall,
	}
	cmd.Flags().BoolVarP(&installForce, "force", "f", false, "Reinstall even if a runtime is already installed")
	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	p := platform.Current()
	res := resolver.New(p, cfg.InstallDir, cfg.VersionProbeTimeout)

	if !installForce {
		if err := resolver.CheckExecutable(res.InstalledPath(), p); err == nil {
			printf(cmd, "fernspielapparat is already installed at %s (use --force to reinstall)\n", res.InstalledPath())
			return nil
		}
	}

	inst := launch.NewInstaller(cfg, p)
	var result installer.Installation
	err := withSpinner(cmd, "Installing fernspielapparat...", "Installation failed", func() error {
		var err error
		result, err = inst.Install(cmd.Context())
		return err
	})
	if err != nil {
		return err
	}

	printf(cmd, "Installed fernspielapparat %s to %s\n", result.Version, result.Path)
	return nil
}
