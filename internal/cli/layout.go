package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/engraver/pkg/io"
	"github.com/matzehuels/engraver/pkg/pipeline"
	"github.com/matzehuels/engraver/pkg/sheet"
)

// layoutCommand creates the layout command for laying out tunes.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout [tunes.json]",
		Short: "Lay out tunes and write their sheets",
		Long: `Lay out tunes and write their sheets.

The input is a JSON symbol stream holding one tune or a book of tunes. The
output is a sheet JSON file: for a single tune one sheet object, for a book
an array of sheets in input order.

Tunes that fail to lay out are reported and skipped; the others are still
written. Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.sheet.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "lay out again even if a cached sheet exists")
	policyFlags(cmd, &opts)

	return cmd
}

// runLayout reads the tunes, lays them out, and writes the sheets.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	prog := newProgress(c.Logger)
	tunes, err := io.ImportBook(input)
	if err != nil {
		return fmt.Errorf("load tunes %s: %w", input, err)
	}
	prog.done(fmt.Sprintf("Read %d tunes", len(tunes)))

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	spin := newSpinner(ctx, os.Stderr, "Laying out")
	opts.Progress = spin.Step
	spin.Start()
	res, layoutErr := runner.Execute(ctx, opts, tunes)
	spin.Stop()

	if spin.Cancelled() {
		done := 0
		if res != nil {
			done = res.Stats.Tunes
		}
		printError("Cancelled after %d of %d tunes", done, len(tunes))
		return ctx.Err()
	}
	if res == nil || len(res.Sheets) == 0 {
		return fmt.Errorf("layout: %w", layoutErr)
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".sheet.json"
	}
	if err := writeSheets(res.Sheets, len(tunes) > 1, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	if layoutErr != nil {
		printWarning("%d of %d tunes failed", res.Stats.Failed, res.Stats.Tunes)
	} else {
		printSuccess("Layout complete")
	}
	printFile(outputPath)
	printStats(res.Stats, res.CacheInfo)
	if res.Stats.Diagnostics > 0 {
		printNewline()
		printNextStep("Review diagnostics", appName+" check "+input)
	}
	return layoutErr
}

// writeSheets writes one sheet as an object, several as an array.
func writeSheets(sheets []sheet.Sheet, book bool, path string) error {
	if !book {
		return sheet.WriteFile(sheets[0], path)
	}
	data, err := sheet.MarshalBook(sheets)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
