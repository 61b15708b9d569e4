package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/engraver/pkg/cache"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/io"
	"github.com/matzehuels/engraver/pkg/observability"
	"github.com/matzehuels/engraver/pkg/score"
	"github.com/matzehuels/engraver/pkg/sheet"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use it so sheets are cached the same way everywhere.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner on different tunes.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute lays out every tune in order. The context is checked before each
// tune; a cancelled run returns the sheets finished so far together with
// the context error.
//
// A tune that fails does not stop the run: its error is collected, the
// remaining tunes are laid out and the joined errors are returned along
// with the result.
func (r *Runner) Execute(ctx context.Context, opts Options, tunes []*score.Tune) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}
	start := time.Now()
	var failed []error
	for k, t := range tunes {
		if err := ctx.Err(); err != nil {
			result.Stats.LayoutTime = time.Since(start)
			return result, err
		}

		tuneStart := time.Now()
		sh, hit, err := r.LayoutWithCacheInfo(ctx, t, opts)
		result.Stats.Tunes++
		if opts.Progress != nil {
			opts.Progress(k+1, len(tunes), t.Title)
		}
		if err != nil {
			result.Stats.Failed++
			r.Logger.Error("layout failed", "tune", t.Title, "index", k+1, "err", err)
			failed = append(failed, fmt.Errorf("tune %d (%s): %w", k+1, t.Title, err))
			continue
		}
		if hit {
			result.CacheInfo.Hits++
		} else {
			result.CacheInfo.Misses++
		}
		result.Sheets = append(result.Sheets, sh)
		result.Stats.Lines += len(sh.Lines)
		for _, ln := range sh.Lines {
			result.Stats.Symbols += len(ln.Symbols)
		}
		result.Stats.Diagnostics += len(sh.Diagnostics)

		r.Logger.Info("laid out tune",
			"tune", t.Title,
			"lines", len(sh.Lines),
			"diagnostics", len(sh.Diagnostics),
			"cached", hit,
			"duration", time.Since(tuneStart))
	}
	result.Stats.LayoutTime = time.Since(start)
	return result, errors.Join(failed...)
}

// LayoutWithCacheInfo lays out one tune with caching and reports whether
// the sheet came from the cache. The cache key hashes the tune's symbol
// stream and the layout policy; the tune is only modified on a miss.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, t *score.Tune, opts Options) (sheet.Sheet, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return sheet.Sheet{}, false, err
	}
	hooks := observability.Cache()

	// The stream has to be hashed before Engrave mutates the tune.
	var stream bytes.Buffer
	if err := io.WriteJSON(t, &stream); err != nil {
		return sheet.Sheet{}, false, fmt.Errorf("hash tune: %w", err)
	}
	cacheKey := r.Keyer.SheetKey(cache.Hash(stream.Bytes()), opts.SheetKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if sh, err := sheet.Unmarshal(data); err == nil {
				hooks.OnCacheHit(ctx, "sheet")
				for _, d := range sh.Diagnostics {
					errs.Raise(d.Severity)
				}
				return sh, true, nil
			}
			// Undecodable entry: fall through and recompute
		} else if err != nil {
			r.Logger.Debug("cache read failed", "err", err)
		}
		hooks.OnCacheMiss(ctx, "sheet")
	}

	sh, err := Engrave(ctx, t, opts)
	if err != nil {
		return sheet.Sheet{}, false, err
	}

	if data, err := sheet.Marshal(sh); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLSheet); err != nil {
			r.Logger.Debug("cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, "sheet", len(data))
		}
	}
	return sh, false, nil
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, t *score.Tune, opts Options) (sheet.Sheet, error) {
	sh, _, err := r.LayoutWithCacheInfo(ctx, t, opts)
	return sh, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
