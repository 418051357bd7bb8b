package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"fernspiel/internal/console"
	"fernspiel/internal/launch"
	"fernspiel/internal/paths"

	"github.com/spf13/cobra"
)

// consoleDialTimeout bounds connecting to the control endpoint.
const consoleDialTimeout = 10 * time.Second

// newConsoleCmd creates the interactive control session command.
func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console [url]",
		Short: "Open an interactive session on a running runtime",
		Long: `Connects to the control endpoint of a running runtime and relays lines
between the terminal and the runtime. Each line you type is sent as one text
message; messages from the runtime are printed as they arrive.

The endpoint defaults to the configured control URL. Leave with "exit" or
Ctrl+D. Input history is kept between sessions.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConsole,
	}
}

func runConsole(cmd *cobra.Command, args []string) error {
	url := cfg.ControlURL()
	if len(args) == 1 {
		url = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, consoleDialTimeout)
	conn, err := launch.DialURL(dialCtx, url)
	cancel()
	if err != nil {
		return err
	}

	printf(cmd, "Connected to %s. Type exit or press Ctrl+D to leave.\n", url)
	c := console.New(conn, console.Config{
		HistoryFile: paths.ConsoleHistoryFile(),
	})
	return c.Run(ctx)
}
