package cmd

import (
	"fmt"
	"os"

	"fernspiel/internal/config"
	"fernspiel/internal/failure"
	"fernspiel/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeInstallFailed indicates the runtime could not be downloaded or unpacked.
	ExitCodeInstallFailed = 3
	// ExitCodeStartupFailed indicates the runtime did not come up.
	ExitCodeStartupFailed = 4
)

var (
	configPath string
	debug      bool
	logFormat  string
	quiet      bool

	// cfg is loaded by the root command before any subcommand runs.
	cfg config.Config
)

// rootCmd represents the base command for the fernspiel application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fernspiel",
	Short: "Install and launch the fernspielapparat runtime",
	Long: `fernspiel locates the fernspielapparat runtime on this machine, installs the
latest release when none is available, and starts it as a server with the
media engine environment it needs. It waits until the control port accepts
connections and prints the control URL.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: loadConfigAndLogging,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "fernspiel version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	kind, ok := failure.KindOf(err)
	if !ok {
		return ExitCodeError
	}
	switch kind {
	case failure.DownloadFailed, failure.ExtractFailed:
		return ExitCodeInstallFailed
	case failure.SpawnFailed, failure.PrematureExit, failure.ProbeTimeout:
		return ExitCodeStartupFailed
	default:
		return ExitCodeError
	}
}

// loadConfigAndLogging reads the configuration file and initializes logging
// from it, with command line flags taking precedence.
func loadConfigAndLogging(cmd *cobra.Command, args []string) error {
	// Errors while loading the configuration are reported with CLI defaults.
	logging.InitForCLI(logging.LevelInfo, cmd.ErrOrStderr())

	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format := cfg.Log.Format
	if cmd.Flags().Changed("log-format") {
		format = logFormat
	}

	switch {
	case debug:
		level = logging.LevelDebug
	case quiet:
		level = logging.LevelError
	}

	if err := logging.Init(logging.Options{Level: level, Format: format, Output: cmd.ErrOrStderr()}); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logging.Debug("CLI", "Configuration loaded (install dir %s)", cfg.InstallDir)
	return nil
}

// printf writes user-facing output unless --quiet is set.
func printf(cmd *cobra.Command, format string, args ...interface{}) {
	if quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Directory containing config.yaml (default $XDG_CONFIG_HOME/fernspiel)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging, including runtime output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "debug")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLaunchCmd())
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newConsoleCmd())
}
