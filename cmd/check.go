package cmd

import (
	"fmt"
	"sort"

	"fernspiel/internal/environment"
	"fernspiel/internal/platform"
	"fernspiel/internal/resolver"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// newCheckCmd creates the diagnostics command.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show how the runtime would be resolved and launched",
		Long: `Prints the platform, the runtime that would be launched, the install
directory and the environment variables fernspiel adds for the media engine.
Nothing is installed or started.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	p := platform.Current()
	res := resolver.New(p, cfg.InstallDir, cfg.VersionProbeTimeout)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("CHECK"), text.FgHiCyan.Sprint("RESULT")})

	t.AppendRow(table.Row{"Platform", p.String()})
	target := p.ReleaseTarget
	if target == "" {
		target = text.FgYellow.Sprint("no releases published")
	}
	t.AppendRow(table.Row{"Release target", target})
	t.AppendRow(table.Row{"Install directory", cfg.InstallDir})

	if version, err := res.QueryVersion(cmd.Context(), p.ExecutableName()); err == nil {
		t.AppendRow(table.Row{"Search path runtime", text.FgGreen.Sprint(version.String())})
	} else {
		t.AppendRow(table.Row{"Search path runtime", text.FgYellow.Sprint(err.Error())})
	}

	if err := resolver.CheckExecutable(res.InstalledPath(), p); err == nil {
		t.AppendRow(table.Row{"Installed runtime", text.FgGreen.Sprint(res.InstalledPath())})
	} else {
		t.AppendRow(table.Row{"Installed runtime", text.FgYellow.Sprint(err.Error())})
	}

	if bin, err := res.Resolve(cmd.Context()); err == nil {
		t.AppendRow(table.Row{"Would launch", text.FgGreen.Sprint(bin.String())})
	} else {
		t.AppendRow(table.Row{"Would launch", text.FgYellow.Sprint("nothing, the latest release would be installed first")})
	}

	t.AppendRow(table.Row{"Runtime listens on", cfg.BindAddress()})
	t.AppendRow(table.Row{"Control URL", cfg.ControlURL()})

	ambient := environment.FromOS()
	overlay := environment.Overlay(ambient, environment.Resolve(ambient, p))
	keys := make([]string, 0, len(overlay))
	for key := range overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		t.AppendRow(table.Row{"Environment", "unchanged"})
	}
	for _, key := range keys {
		t.AppendRow(table.Row{fmt.Sprintf("Environment %s", key), overlay[key]})
	}

	t.Render()
	return nil
}
