// Package pipeline runs the layout engine end to end.
//
// It wires the stages of [engrave] into one call per tune and adds what a
// command line or server needs around them: policy loading, caching of
// finished sheets, logging of diagnostics and observability hooks. The CLI
// and the layout server both go through a [Runner], so they lay out tunes
// identically.
//
// # Stages
//
// For every tune the pipeline runs, strictly in order:
//
//  1. pitch, voices, merge: resolve staff offsets and build the time chain
//  2. stem: decide stem directions and beam groups
//  3. spacing: cut the tune into lines and place symbols horizontally
//  4. beam: fit beams and stem lengths
//  5. slur and stack, line by line: arcs first, then staff positions
//  6. sheet: collect everything into a [sheet.Sheet]
//
// A tune is never cancelled halfway; the context is checked between tunes.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{ConfigPath: "layout.toml", Width: 480}
//	result, err := runner.Execute(ctx, opts, tunes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	first := result.Sheets[0]
//
// Lay out a single tune without caching:
//
//	sh, err := pipeline.Engrave(ctx, tune, opts)
//
// [engrave]: github.com/matzehuels/engraver/pkg/engrave
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engraver/pkg/buildinfo"
	"github.com/matzehuels/engraver/pkg/cache"
	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/glyph"
	"github.com/matzehuels/engraver/pkg/sheet"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a layout run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout is the policy to use. When nil, the policy is read from
	// ConfigPath, or the defaults are used.
	Layout *config.Layout `json:"layout,omitempty"`

	// ConfigPath names a TOML policy file.
	ConfigPath string `json:"-"`

	// MetricsPath names a TOML glyph width table used instead of the
	// built-in one.
	MetricsPath string `json:"-"`

	// Width overrides the line width of the policy when positive.
	Width float64 `json:"width,omitempty"`

	// Refresh lays tunes out again even when a cached sheet exists.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Metrics glyph.Metrics `json:"-"`
	Logger  *log.Logger   `json:"-"`

	// Progress, when set, is called by Runner.Execute after every tune,
	// failed ones included, with the count done so far.
	Progress func(done, total int, title string) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated   bool   `json:"-"`
	metricsHash string `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Sheets holds one sheet per tune that was laid out, in input order.
	Sheets []sheet.Sheet

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks how many sheets came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Tunes       int
	Failed      int
	Lines       int
	Symbols     int
	Diagnostics int
	LayoutTime  time.Duration
}

// CacheInfo tracks cache hits over a run.
type CacheInfo struct {
	Hits   int
	Misses int
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults resolves the policy and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Width < 0 {
		return fmt.Errorf("width must not be negative, got %g", o.Width)
	}

	var l config.Layout
	switch {
	case o.Layout != nil:
		l = *o.Layout
	case o.ConfigPath != "":
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return err
		}
		l = loaded
	default:
		l = config.Default()
	}
	if o.Width > 0 {
		l.Width = o.Width
	}
	l.Clamp()
	o.Layout = &l

	if o.Metrics == nil && o.MetricsPath != "" {
		tab, err := glyph.LoadTable(o.MetricsPath)
		if err != nil {
			return err
		}
		o.Metrics = tab
	}
	if o.Metrics == nil {
		o.Metrics = glyph.Default()
	}
	// Custom tables take part in the cache key.
	if tab, ok := o.Metrics.(*glyph.Table); ok && tab != glyph.Default() {
		if data, err := json.Marshal(tab); err == nil {
			o.metricsHash = cache.Hash(data)
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Policy returns the resolved layout policy. It is only meaningful after
// ValidateAndSetDefaults.
func (o *Options) Policy() config.Layout {
	if o.Layout == nil {
		return config.Default()
	}
	return *o.Layout
}

// SheetKeyOpts returns cache key options for the resolved policy. The
// engine version is part of the key so upgrades never serve stale sheets.
func (o *Options) SheetKeyOpts() cache.SheetKeyOpts {
	return cache.SheetKeyOpts{
		PolicyHash: cache.Hash(o.Policy().Bytes()),
		Engine:     buildinfo.Version,
		Metrics:    o.metricsHash,
	}
}
