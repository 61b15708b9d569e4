// Package io provides JSON import and export for symbol streams.
//
// # Overview
//
// The engine does not parse music notation itself. A front end (or a test)
// produces a JSON symbol stream: one object per tune listing its voices and,
// per voice, the symbols in playing order. This package turns such a
// document into a [score.Tune] ready for the layout stages, and writes a
// tune back out in the same format.
//
// # JSON Format
//
//	{
//	  "title": "Minuet",
//	  "voices": [
//	    {
//	      "id": "V1", "staff": 0, "clef": "treble", "key": -1, "meter": "3/4",
//	      "symbols": [
//	        {"type": "note", "dur": 384, "heads": [{"pitch": 4}]},
//	        {"type": "bar", "bar": "|"}
//	      ]
//	    }
//	  ],
//	  "staves": [{"lines": 5}],
//	  "systems": [{"time": 0, "staves": [0]}]
//	}
//
// A file may also hold several tunes: {"tunes": [ {...}, {...} ]}. Use
// [ReadBook] or [ImportBook] for those.
//
// # Voice Fields
//
//   - id: unique voice identifier (required)
//   - staff: staff index, 0 on top
//   - clef: "treble", "bass", "alto", "tenor", "perc", "auto" or "G2"-style,
//     with an optional "-8"/"+8" octave suffix
//   - key: number of sharps (positive) or flats (negative)
//   - meter: "3/4", "C", "C|" or "none"
//   - floating, second: voice roles on shared staves
//   - stem: forced stem direction ("up", "down")
//   - transpose: diatonic steps added to every pitch
//
// The reader opens the first voice of every staff with its header clef, key
// and meter unless the voice already starts with them, so the first line of
// a tune carries its signatures like every other line.
//
// # Symbol Fields
//
// Every symbol has a "type" (note, rest, bar, clef, key, meter, tempo, part,
// grace, format, tuplet, staffbreak, custos). Durations are written
// durations in ticks of 1536 per whole note. Time is optional: when omitted
// a symbol starts where the previous one of its voice ends. A tuplet
// marker {"type": "tuplet", "tuplet": {"p": 3, "q": 2, "r": 3}} scales the
// played duration of the next r notes and rests by q/p.
//
// # Round Trip
//
// [WriteJSON] writes every symbol of every voice except the ones the engine
// inserted itself (line-start signatures, ghost notes at line cuts), so a
// tune read, laid out and written again reads back to the same stream.
package io
