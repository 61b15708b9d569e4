// Package cli implements the engraver command-line interface.
//
// The CLI reads tunes in the JSON symbol stream format, lays them out and
// writes JSON sheets. Finished sheets are cached under the user's cache
// directory, keyed by the content of the tune and the layout policy. The
// CLI is built using cobra and logs via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - layout: Lay out tunes and write their sheets
//   - check: Lay out tunes and report diagnostics only
//   - config: Print the layout policy as TOML
//   - cache: Manage the sheet cache
//   - serve: Run the HTTP layout server
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Layout
// diagnostics are logged as they are found: warnings at warn level, the
// rest at debug level.
//
// # Example
//
//	import "github.com/matzehuels/engraver/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
// The returned progress should call done when the operation completes.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// The duration is rounded to the nearest millisecond.
// Example output: "Read 3 tunes (12ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
