package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engraver/pkg/engrave/beam"
	"github.com/matzehuels/engraver/pkg/engrave/merge"
	"github.com/matzehuels/engraver/pkg/engrave/pitch"
	"github.com/matzehuels/engraver/pkg/engrave/slur"
	"github.com/matzehuels/engraver/pkg/engrave/spacing"
	"github.com/matzehuels/engraver/pkg/engrave/stack"
	"github.com/matzehuels/engraver/pkg/engrave/stem"
	"github.com/matzehuels/engraver/pkg/engrave/voices"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/observability"
	"github.com/matzehuels/engraver/pkg/score"
	"github.com/matzehuels/engraver/pkg/sheet"
)

// =============================================================================
// Layout Generation
// =============================================================================

// Engrave lays out one tune and returns its sheet. The tune is modified in
// place: engine symbols are inserted and every symbol gets its position, so
// a tune can be engraved only once.
//
// Musical irregularities never fail the layout; they end up in the sheet's
// diagnostics and are logged as they are found. Engrave only returns an
// error for tunes whose structure is broken.
func Engrave(ctx context.Context, t *score.Tune, opts Options) (sheet.Sheet, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return sheet.Sheet{}, err
	}
	cfg := opts.Policy()
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnTuneStart(ctx, t.Title, len(t.Voices))

	diag := &errs.Diagnostics{Sink: logSink(opts.Logger, t.Title)}

	pitch.Resolve(t, diag)
	voices.Assign(t, cfg, diag)
	if err := merge.Merge(t, diag); err != nil {
		errs.Raise(errs.SeverityError)
		hooks.OnTuneComplete(ctx, t.Title, 0, time.Since(start), err)
		return sheet.Sheet{}, err
	}
	groups := stem.Direct(t)

	lines := spacing.New(cfg, opts.Metrics, diag).Layout(t)
	for k := range lines {
		ln := &lines[k]
		hooks.OnLineSolved(ctx, t.Title, ln.Number, ln.Beta-ln.Alfa, ln.Overfull)
	}
	beams := beam.Place(t, lines, groups, cfg, diag)

	in := sheet.Input{Tune: t, Width: cfg.Width, Lines: lines, Beams: beams}
	arcs := slur.NewResolver(t, cfg, diag)
	for k := range lines {
		a := arcs.Line(&lines[k])
		in.Arcs = append(in.Arcs, a)
		in.Stacks = append(in.Stacks, stack.Place(t, &lines[k], a, cfg))
	}
	in.Diagnostics = diag.Items()

	sh := sheet.Build(in)
	hooks.OnTuneComplete(ctx, t.Title, len(sh.Lines), time.Since(start), nil)
	return sh, nil
}

// logSink logs every diagnostic of a tune as it is recorded: warnings and
// worse at warn level, the rest at debug level.
func logSink(logger *log.Logger, title string) func(errs.Diagnostic) {
	return func(d errs.Diagnostic) {
		kv := []any{"tune", title, "code", d.Code}
		if d.Line >= 0 {
			kv = append(kv, "line", d.Line)
		}
		if d.Voice >= 0 {
			kv = append(kv, "voice", d.Voice)
		}
		if d.Time >= 0 {
			kv = append(kv, "time", d.Time)
		}
		if d.Severity >= errs.SeverityWarning {
			logger.Warn(d.Message, kv...)
		} else {
			logger.Debug(d.Message, kv...)
		}
	}
}
