// Package score holds the in-memory model of a tune being laid out.
//
// # Overview
//
// A [Tune] owns an [Arena] of [Symbol] values. Every stage of the engraving
// pipeline reads and mutates these symbols in place; nothing outlives the
// tune, so dropping the tune releases everything at once.
//
// Symbols are addressed by [Index], a stable integer handle into the arena.
// Two orderings run over the same symbols:
//
//   - the per-voice chain ([Symbol.Next] / [Symbol.Prev]), in score order
//     within a single voice;
//   - the time chain ([Symbol.TNext] / [Symbol.TPrev]), all voices merged
//     by time and sequence class.
//
// Both are intrusive lists of indices, so splicing a synthetic symbol (a clef
// inserted by auto-clef, a ghost symbol at a line cut) is O(1) and never
// raises ownership questions.
//
// # Units
//
// Durations are integer ticks with [BaseLen] (1536) ticks per whole note.
// Pitches are diatonic steps from middle C (C4 = 0, D4 = 1, B3 = -1).
// Vertical positions are in points relative to the bottom staff line, three
// points per diatonic step, so the five-line staff spans 0..24.
//
// # Building tunes
//
//	t := score.NewTune("Minuet")
//	v := t.AddVoice("V1", 0)
//	t.Append(v, score.Note(score.Quarter, 2))
//	t.Append(v, score.Bar(score.BarSingle))
package score
