// Package engrave groups the stages of the music layout engine.
//
// Each stage lives in its own sub-package and mutates a [score.Tune] in
// place. They must run in this order:
//
//  1. pitch: staff offsets of every note head from clef and transposition
//  2. voices: auto clefs, floating voices, multi-voice stacking roles
//  3. merge: bar check and the global time chain
//  4. stem: stem directions and beam groups
//  5. spacing: widths, glue, line cutting and horizontal positions
//  6. beam: beam slopes, stem lengths and beam polygons
//  7. slur: slur and tie curves, carried across lines
//  8. stack: vertical staff positions per line
//
// The pipeline package wires them together; the sub-packages can also be
// driven individually, which is how their tests exercise them.
//
// Stages never fail on musical content. Irregularities are reported into
// an [errors.Diagnostics] value and repaired locally so the layout always
// completes.
//
// [score.Tune]: github.com/matzehuels/engraver/pkg/score.Tune
// [errors.Diagnostics]: github.com/matzehuels/engraver/pkg/errors.Diagnostics
package engrave
