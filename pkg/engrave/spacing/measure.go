package spacing

import (
	"strconv"

	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/glyph"
	"github.com/matzehuels/engraver/pkg/score"
)

// Text sizes used when measuring lyrics, annotations and tempo marks.
const (
	lyricSize      = 13.0
	annotationSize = 12.0
	lyricDepth     = 14.0 // vertical room per lyric line below the staff
	textHeight     = 12.0 // vertical room per annotation above the staff
	decoHeight     = 8.0
	staffBreakGap  = 20.0
	accidentalGap  = 1.0
	dotGap         = 1.2
	graceGap       = 1.5
)

// Measure sets the horizontal extents (Wl, Wr) and the vertical extents
// (YMax, YMin, relative to the bottom staff line) of a symbol. The stem of
// a note is assumed to have its default length; the beam stage refines it.
func Measure(s *score.Symbol, m glyph.Metrics, cfg config.Layout) {
	s.Wl, s.Wr = 0, 0
	s.YMax, s.YMin = score.StaffHeight, 0
	if s.Has(score.FlagGhost) {
		return
	}

	switch s.Kind {
	case score.KindNote:
		measureNote(s, m, cfg)
	case score.KindRest:
		w := m.Width(glyph.RestFor(s.Written()))
		s.Wl, s.Wr = w/2, w/2
		if d := score.Dots(s.Written()); d > 0 {
			s.Wr += float64(d) * (m.Width(glyph.Dot) + dotGap)
		}
	case score.KindBar:
		w := barWidth(s.Bar, m)
		s.Wl, s.Wr = w/2, w/2
	case score.KindClef:
		w := m.Width(glyph.ClefFor(s.Clef))
		if s.Time > 0 && !s.Has(score.FlagSynthetic) {
			// Clef changes inside a line are drawn smaller.
			w *= 0.75
		}
		s.Wr = w
		s.YMax = score.StaffHeight + 8
		s.YMin = -6
	case score.KindKeySig:
		s.Wr = keyWidth(s.Key, m)
	case score.KindTimeSig:
		digits := max(len(strconv.Itoa(s.Meter.Num)), len(strconv.Itoa(s.Meter.Den)))
		s.Wr = float64(digits) * m.Width(glyph.MeterDigit)
	case score.KindGrace:
		w := 0.0
		for _, g := range s.Grace {
			w += m.Width(glyph.GraceHead) + graceGap
			for _, h := range g.Heads {
				if h.Acc != score.AccNone {
					w += 0.7 * m.Width(glyph.AccidentalFor(h.Acc))
					break
				}
			}
		}
		s.Wr = w
	case score.KindCustos:
		s.Wr = m.Width(glyph.Custos)
	case score.KindStaffBreak:
		s.Wr = staffBreakGap
	case score.KindTempo, score.KindPart:
		s.YMax = score.StaffHeight + textHeight + 4
	}

	if s.Has(score.FlagInvisible) && s.Kind != score.KindNote && s.Kind != score.KindRest {
		s.Wl, s.Wr = 0, 0
	}
	addText(s, m)
}

func measureNote(s *score.Symbol, m glyph.Metrics, cfg config.Layout) {
	hw := m.Width(glyph.HeadFor(s.Written()))
	s.Wl, s.Wr = hw/2, hw/2

	acc := 0.0
	for _, h := range s.Heads {
		if h.Acc != score.AccNone {
			acc = max(acc, m.Width(glyph.AccidentalFor(h.Acc))+accidentalGap)
		}
	}
	s.Wl += acc

	if d := score.Dots(s.Written()); d > 0 {
		s.Wr += float64(d) * (m.Width(glyph.Dot) + dotGap)
	}
	if s.NFlags > 0 && !s.Has(score.FlagBeamed) && s.Stem == score.DirUp {
		s.Wr = max(s.Wr, hw/2+m.Width(glyph.Flag))
	}

	top := float64(s.TopOffset())*score.StepHeight + score.StepHeight
	bot := float64(s.BottomOffset())*score.StepHeight - score.StepHeight
	if s.HasStem() {
		switch s.Stem {
		case score.DirUp:
			top = max(top, float64(s.TopOffset())*score.StepHeight+cfg.Beam.StemLen)
		case score.DirDown:
			bot = min(bot, float64(s.BottomOffset())*score.StepHeight-cfg.Beam.StemLen)
		}
	}
	s.YMax = max(s.YMax, top)
	s.YMin = min(s.YMin, bot)

	// Decorations go on the side opposite the stem.
	for range s.Decorations {
		if s.Stem == score.DirUp {
			s.YMin -= decoHeight
		} else {
			s.YMax += decoHeight
		}
	}
}

// addText widens a symbol for its lyrics (centred under the anchor) and
// annotations (starting at the anchor) and reserves vertical room.
func addText(s *score.Symbol, m glyph.Metrics) {
	for _, l := range s.Lyrics {
		w := m.TextWidth(l, lyricSize)
		s.Wl = max(s.Wl, w/2)
		s.Wr = max(s.Wr, w/2)
	}
	if n := len(s.Lyrics); n > 0 {
		s.YMin = min(s.YMin, -float64(n)*lyricDepth)
	}
	for _, a := range s.Annotations {
		s.Wr = max(s.Wr, m.TextWidth(a, annotationSize))
	}
	if n := len(s.Annotations); n > 0 {
		s.YMax = max(s.YMax, score.StaffHeight+float64(n)*textHeight)
	}
}

func barWidth(b score.BarType, m glyph.Metrics) float64 {
	thin, thick, dots := m.Width(glyph.BarThin), m.Width(glyph.BarThick), m.Width(glyph.BarDots)
	switch b {
	case score.BarInvisible:
		return 0
	case score.BarDouble:
		return 2*thin + 3
	case score.BarThinThick, score.BarThickThin:
		return thin + thick + 3
	case score.BarRepeatStart, score.BarRepeatEnd:
		return thin + thick + dots + 5
	case score.BarRepeatBoth:
		return 2*thin + 2*dots + 8
	}
	return thin
}

func keyWidth(k score.Key, m glyph.Metrics) float64 {
	name := glyph.KeySharp
	if k.Sf < 0 {
		name = glyph.KeyFlat
	}
	return float64(k.Count()) * m.Width(name)
}
