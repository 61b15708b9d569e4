package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/io"
	"github.com/matzehuels/engraver/pkg/pipeline"
)

// ExitError carries the process exit status a command asks for.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// Exit statuses of the check command.
const (
	ExitWarnings = 2
	ExitErrors   = 1
)

// checkCommand creates the check command, which lays tunes out only to
// report their diagnostics.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		noCache bool
		quiet   bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "check [tunes.json]",
		Short: "Report layout diagnostics without writing sheets",
		Long: `Lay out tunes and report what the engine had to repair or accept:
overfull and underfull lines, structural problems such as unbalanced bars
or unterminated slurs, and degenerate geometry.

The exit status is 0 when nothing worse than informational diagnostics was
found, 2 when there were warnings and 1 when a tune could not be laid out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd, args[0], opts, noCache, quiet)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print the summary")
	policyFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runCheck(cmd *cobra.Command, input string, opts pipeline.Options, noCache, quiet bool) error {
	ctx := cmd.Context()
	tunes, err := io.ImportBook(input)
	if err != nil {
		return fmt.Errorf("load tunes %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	errs.ResetSeverity()
	res, layoutErr := runner.Execute(ctx, opts, tunes)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if res == nil {
		return layoutErr
	}

	out := cmd.OutOrStdout()
	for _, sh := range res.Sheets {
		counts := map[errs.Severity]int{}
		for _, d := range sh.Diagnostics {
			counts[d.Severity]++
		}
		fmt.Fprintf(out, "%s: %d lines, %d warnings, %d notes\n",
			sh.Title, len(sh.Lines), counts[errs.SeverityWarning], counts[errs.SeverityInfo])
		if quiet {
			continue
		}
		for _, d := range sh.Diagnostics {
			fmt.Fprintf(out, "  %s%s\n", d, where(d))
		}
	}

	switch sev := errs.CurrentSeverity(); {
	case sev >= errs.SeverityError:
		msg := "layout failed"
		if layoutErr != nil {
			msg = layoutErr.Error()
		}
		return &ExitError{Code: ExitErrors, Msg: msg}
	case sev == errs.SeverityWarning:
		return &ExitError{Code: ExitWarnings, Msg: fmt.Sprintf("%d diagnostics", res.Stats.Diagnostics)}
	}
	return nil
}

// where formats the location of a diagnostic.
func where(d errs.Diagnostic) string {
	s := ""
	if d.Line >= 0 {
		s += fmt.Sprintf(" line=%d", d.Line)
	}
	if d.Voice >= 0 {
		s += fmt.Sprintf(" voice=%d", d.Voice)
	}
	if d.Time >= 0 {
		s += fmt.Sprintf(" time=%d", d.Time)
	}
	if s == "" {
		return ""
	}
	return " (" + s[1:] + ")"
}
