package cmd

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// withSpinner runs fn while showing a spinner on stderr. The spinner stays
// silent with --quiet, --debug or when stderr is not a terminal.
func withSpinner(cmd *cobra.Command, suffix, failedMsg string, fn func() error) error {
	if quiet || debug {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()

	err := fn()
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint(failedMsg) + "\n"
	}
	return err
}
