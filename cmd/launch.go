package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fernspiel/internal/launch"
	"fernspiel/internal/metrics"
	"fernspiel/internal/platform"
	"fernspiel/internal/watch"
	"fernspiel/pkg/logging"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
)

var launchRestartOnUpdate bool

// newLaunchCmd creates the command that starts the runtime and keeps it running.
func newLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Start the fernspielapparat runtime and print its control URL",
		Long: `Starts the fernspielapparat runtime as a server.

The runtime is taken from the search path when it answers a version query,
otherwise from the install directory. When neither exists the latest release
is downloaded first. The command prints the control URL once the runtime
accepts connections and keeps running until it receives SIGINT or SIGTERM,
then stops the runtime.

When started by systemd with Type=notify, readiness is reported over sd_notify.`,
		Args: cobra.NoArgs,
		RunE: runLaunch,
	}
	cmd.Flags().BoolVar(&launchRestartOnUpdate, "restart-on-update", false, "Restart the runtime when the installed executable is replaced")
	return cmd
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Address != "" {
		collector := metrics.NewCollector()
		recorder = collector
		shutdown := serveMetrics(cfg.Metrics.Address, collector)
		defer shutdown()
	}

	launcher := launch.FromConfig(cfg, recorder)

	restart := make(chan struct{}, 1)
	if launchRestartOnUpdate {
		w := watch.New(watch.Config{
			Path: filepath.Join(cfg.InstallDir, platform.Current().ExecutableName()),
			OnChange: func() {
				select {
				case restart <- struct{}{}:
				default:
				}
			},
		})
		go func() {
			if err := w.Run(ctx); err != nil {
				logging.Error("CLI", err, "Update watcher stopped")
			}
		}()
	}

	for {
		var h *launch.Handle
		err := withSpinner(cmd, "Starting fernspielapparat...", "Failed to start fernspielapparat", func() error {
			var err error
			h, err = launcher.Launch(ctx)
			return err
		})
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return err
		}

		printf(cmd, "%s\n", h.URL)
		notifySystemd(daemon.SdNotifyReady)

		select {
		case <-ctx.Done():
			notifySystemd(daemon.SdNotifyStopping)
			return terminate(h)

		case <-h.Done():
			return fmt.Errorf("runtime exited with code %d", h.Process.ExitCode())

		case <-restart:
			logging.Info("CLI", "Installed runtime changed, restarting")
			notifySystemd(daemon.SdNotifyReloading)
			if err := terminate(h); err != nil {
				return err
			}
		}
	}
}

func terminate(h *launch.Handle) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace+5*time.Second)
	defer cancel()
	return h.Terminate(ctx)
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("CLI", "Failed to notify systemd: %v", err)
		return
	}
	if sent {
		logging.Debug("CLI", "Notified systemd: %s", state)
	}
}

// serveMetrics exposes the collector on address and returns a function that
// stops the server.
func serveMetrics(address string, collector *metrics.Collector) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logging.Info("CLI", "Serving metrics on http://%s/metrics", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("CLI", err, "Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
}
