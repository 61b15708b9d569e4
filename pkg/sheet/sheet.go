// Package sheet is the serialized output of the layout engine.
//
// A [Sheet] holds everything a rendering backend needs to draw a tune:
// per line, the staff origins and every drawn symbol with its glyph and
// position, the stems, the beam slabs and the slur and tie curves. The
// engine's working data (glue, profiles, chains) is left behind.
//
// # Coordinates
//
// All x values are points from the start of the line. Vertical values of
// symbols, stems, beams and arcs are staff relative: points up from the
// bottom line of the staff named by the element. Staff.Y places a staff's
// top line inside the line block, measured down from the block's top, and
// Line.Y places the block on the page. [Line.PageY] combines the three.
//
// # Serialization
//
// Use [Marshal] and [Unmarshal] for bytes, [WriteFile] and [ReadFile] for
// files. The format is plain JSON and stable across runs: laying out the
// same stream with the same policy yields identical bytes, which is what
// makes sheets cacheable by content hash.
package sheet

import (
	"github.com/matzehuels/engraver/pkg/engrave/beam"
	"github.com/matzehuels/engraver/pkg/engrave/stack"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/glyph"
	"github.com/matzehuels/engraver/pkg/score"
)

// =============================================================================
// Sheet - Unified Output Format
// =============================================================================

// Sheet is one laid-out tune.
type Sheet struct {
	Title       string            `json:"title"`
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
	Lines       []Line            `json:"lines"`
	Diagnostics []errs.Diagnostic `json:"diagnostics,omitempty"`
}

// Line is one line of music.
type Line struct {
	Number int     `json:"number"`
	Y      float64 `json:"y"`
	Height float64 `json:"height"`

	// Glue ratios the line was solved with.
	Alfa      float64 `json:"alfa,omitempty"`
	Beta      float64 `json:"beta,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Overfull  bool    `json:"overfull,omitempty"`
	Underfull bool    `json:"underfull,omitempty"`

	Staves  []Staff  `json:"staves"`
	Symbols []Symbol `json:"symbols"`
	Beams   []Beam   `json:"beams,omitempty"`
	Arcs    []Arc    `json:"arcs,omitempty"`
}

// PageY converts a staff-relative y on a line to a page y, measured down
// from the top of the page. It returns -1 for a hidden staff.
func (l *Line) PageY(staff int, y float64) float64 {
	if staff < 0 || staff >= len(l.Staves) || l.Staves[staff].Hidden {
		return -1
	}
	return l.Y + l.Staves[staff].Y + score.StaffHeight - y
}

// Staff is the origin of one staff on a line.
type Staff struct {
	Index  int     `json:"index"`
	Y      float64 `json:"y"`
	Lines  int     `json:"lines"`
	Hidden bool    `json:"hidden,omitempty"`
}

// Symbol is one drawn symbol.
type Symbol struct {
	Kind  string  `json:"kind"`
	Glyph string  `json:"glyph,omitempty"`
	Voice int     `json:"voice"`
	Staff int     `json:"staff"`
	Time  int     `json:"time"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`

	Heads []Head `json:"heads,omitempty"`
	Stem  *Stem  `json:"stem,omitempty"`
	Flags int    `json:"flags,omitempty"`
	Dots  int    `json:"dots,omitempty"`

	Bar   string   `json:"bar,omitempty"`
	Key   int      `json:"key,omitempty"`
	Meter string   `json:"meter,omitempty"`
	Text  string   `json:"text,omitempty"`
	Deco  []string `json:"decorations,omitempty"`
	Lyric []string `json:"lyrics,omitempty"`
	Notes []string `json:"annotations,omitempty"`
	Grace []Grace  `json:"grace,omitempty"`

	Synthetic bool `json:"synthetic,omitempty"`
}

// Head is one note head.
type Head struct {
	Y          float64 `json:"y"`
	Glyph      string  `json:"glyph"`
	Accidental string  `json:"accidental,omitempty"`
}

// Grace is one grace note of a grace group.
type Grace struct {
	Heads []Head `json:"heads"`
}

// Stem runs from the head at Y0 to the tip at Y1.
type Stem struct {
	X  float64 `json:"x"`
	Y0 float64 `json:"y0"`
	Y1 float64 `json:"y1"`
}

// Beam is one piece of a beam group on a line.
type Beam struct {
	Voice    int              `json:"voice"`
	Staff    int              `json:"staff"`
	Slope    float64          `json:"slope"`
	Offset   float64          `json:"offset"`
	X0       float64          `json:"x0"`
	Polygons [][4]score.Point `json:"polygons"`
}

// Arc is a slur or tie segment.
type Arc struct {
	Kind      string      `json:"kind"`
	Staff     int         `json:"staff"`
	Dir       string      `json:"dir"`
	P0        score.Point `json:"p0"`
	C1        score.Point `json:"c1"`
	C2        score.Point `json:"c2"`
	P3        score.Point `json:"p3"`
	HalfStart bool        `json:"half_start,omitempty"`
	HalfEnd   bool        `json:"half_end,omitempty"`
}

// =============================================================================
// Building
// =============================================================================

// Input is the placed geometry of a tune as the stages leave it. Stacks
// and Arcs are indexed like Lines.
type Input struct {
	Tune        *score.Tune
	Width       float64
	Lines       []score.Line
	Stacks      []stack.Stack
	Beams       []beam.Beam
	Arcs        [][]score.Arc
	Diagnostics []errs.Diagnostic
}

// Build assembles the sheet of a laid-out tune. Lines are stacked top down
// in the order given.
func Build(in Input) Sheet {
	t := in.Tune
	out := Sheet{Title: t.Title, Width: in.Width, Diagnostics: in.Diagnostics}

	y := 0.0
	for k := range in.Lines {
		ln := &in.Lines[k]
		line := Line{
			Number:    ln.Number,
			Y:         y,
			Alfa:      ln.Alfa,
			Beta:      ln.Beta,
			Scale:     ln.Scale,
			Overfull:  ln.Overfull,
			Underfull: ln.Underfull,
		}
		if k < len(in.Stacks) {
			st := in.Stacks[k]
			line.Height = st.Height
			for n, sy := range st.Y {
				line.Staves = append(line.Staves, Staff{Index: n, Y: sy, Lines: t.Staves[n].Lines, Hidden: sy < 0})
			}
		}
		line.Symbols = symbols(t, ln)
		if k < len(in.Arcs) {
			for _, a := range in.Arcs[k] {
				line.Arcs = append(line.Arcs, Arc{
					Kind: a.Kind.String(), Staff: a.Staff, Dir: a.Dir.String(),
					P0: a.P0, C1: a.C1, C2: a.C2, P3: a.P3,
					HalfStart: a.HalfStart, HalfEnd: a.HalfEnd,
				})
			}
		}
		for _, b := range in.Beams {
			if b.Line != ln.Number {
				continue
			}
			polys := make([][4]score.Point, len(b.Polygons))
			for n, p := range b.Polygons {
				polys[n] = p
			}
			line.Beams = append(line.Beams, Beam{
				Voice: b.Voice, Staff: b.Staff, Slope: b.Slope, Offset: b.Offset, X0: b.X0, Polygons: polys,
			})
		}
		out.Lines = append(out.Lines, line)
		y += line.Height
	}
	out.Height = y
	return out
}

func symbols(t *score.Tune, ln *score.Line) []Symbol {
	out := []Symbol{}
	for i := ln.First; i != score.Nil; i = t.At(i).TNext {
		s := t.At(i)
		if s.Visible() {
			out = append(out, symbol(s))
		}
		if i == ln.Last {
			break
		}
	}
	return out
}

func symbol(s *score.Symbol) Symbol {
	out := Symbol{
		Kind:      s.Kind.String(),
		Voice:     s.Voice,
		Staff:     s.Staff,
		Time:      s.Time,
		X:         s.X,
		Text:      s.Text,
		Deco:      s.Decorations,
		Lyric:     s.Lyrics,
		Notes:     s.Annotations,
		Synthetic: s.Has(score.FlagSynthetic),
	}
	switch s.Kind {
	case score.KindNote:
		w := s.Written()
		out.Y = float64(s.BottomOffset()) * score.StepHeight
		out.Heads = heads(s.Heads, glyph.HeadFor(w))
		out.Dots = score.Dots(w)
		if s.HasStem() {
			y0 := float64(s.BottomOffset()) * score.StepHeight
			if s.Stem == score.DirDown {
				y0 = float64(s.TopOffset()) * score.StepHeight
			}
			out.Stem = &Stem{X: beam.StemX(s), Y0: y0, Y1: s.StemY}
			if !s.Has(score.FlagBeamed) {
				out.Flags = s.NFlags
			}
		}
	case score.KindRest:
		out.Glyph = glyph.RestFor(s.Written())
		out.Y = score.MiddleLine * score.StepHeight
		out.Dots = score.Dots(s.Written())
	case score.KindBar:
		out.Bar = s.Bar.String()
	case score.KindClef:
		out.Glyph = glyph.ClefFor(s.Clef)
		out.Y = float64(2*(s.Clef.Line-1)) * score.StepHeight
	case score.KindKeySig:
		out.Key = s.Key.Sf
	case score.KindTimeSig:
		out.Meter = s.Meter.String()
	case score.KindGrace:
		for _, g := range s.Grace {
			out.Grace = append(out.Grace, Grace{Heads: heads(g.Heads, glyph.GraceHead)})
		}
	}
	return out
}

func heads(hs []score.Head, name string) []Head {
	out := make([]Head, len(hs))
	for k, h := range hs {
		out[k] = Head{Y: h.Y(), Glyph: name, Accidental: glyph.AccidentalFor(h.Acc)}
	}
	return out
}
