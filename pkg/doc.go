// Package pkg provides the core libraries for the Engraver music layout engine.
//
// # Overview
//
// Engraver turns a stream of musical symbols (notes, rests, bars, clefs,
// signatures) into placed geometry: x positions on lines of a fixed width,
// stem directions and lengths, beam slabs, slur and tie curves and staff
// offsets. The pkg directory is organized into these areas:
//
//  1. [score] - The symbol stream: tunes, voices, staves and their links
//  2. [engrave] - The layout stages, one package per stage
//  3. [sheet] - The serialized output handed to rendering backends
//  4. [pipeline] - Orchestration (stream → stages → sheet) with caching
//  5. [io], [config], [glyph] - Input format, layout policy and font metrics
//  6. [cache], [observability], [errors] - Infrastructure
//
// # Architecture
//
// The data flow through a layout run:
//
//	JSON symbol stream
//	         ↓
//	  [io.ReadBook]
//	         ↓
//	  pitch → voices → merge → stem        (per tune)
//	         ↓
//	  spacing (line breaking + glue)
//	         ↓
//	  beam → slur → stack                  (per line)
//	         ↓
//	  [sheet.Build]
//	         ↓
//	  JSON sheet (CLI output, HTTP response, cache entry)
//
// Every stage reports recoverable problems to an [errors.Diagnostics]
// collector instead of failing; only malformed input aborts a tune.
//
// # Usage
//
// Most callers go through [pipeline.Runner]:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{}, tunes)
//
// [score]: github.com/matzehuels/engraver/pkg/score
// [engrave]: github.com/matzehuels/engraver/pkg/engrave
// [sheet]: github.com/matzehuels/engraver/pkg/sheet
// [pipeline]: github.com/matzehuels/engraver/pkg/pipeline
// [pipeline.Runner]: github.com/matzehuels/engraver/pkg/pipeline#Runner
// [io]: github.com/matzehuels/engraver/pkg/io
// [io.ReadBook]: github.com/matzehuels/engraver/pkg/io#ReadBook
// [config]: github.com/matzehuels/engraver/pkg/config
// [glyph]: github.com/matzehuels/engraver/pkg/glyph
// [cache]: github.com/matzehuels/engraver/pkg/cache
// [observability]: github.com/matzehuels/engraver/pkg/observability
// [errors]: github.com/matzehuels/engraver/pkg/errors
// [errors.Diagnostics]: github.com/matzehuels/engraver/pkg/errors#Diagnostics
// [sheet.Build]: github.com/matzehuels/engraver/pkg/sheet#Build
package pkg
