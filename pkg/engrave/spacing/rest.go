package spacing

import "github.com/matzehuels/engraver/pkg/score"

// CenterMeasureRests moves every whole-measure rest of a placed line to the
// midpoint of the bars around it in its voice. A rest with no bar before it
// on the line uses the line start, one with no bar after it the line end.
func CenterMeasureRests(t *score.Tune, ln *score.Line) {
	for i := ln.First; i != score.Nil; i = t.At(i).TNext {
		s := t.At(i)
		if s.Kind == score.KindRest && s.Has(score.FlagMeasureRest) {
			left, right := 0.0, ln.Width
			if b := neighbourBar(t, i, ln.Number, false); b != score.Nil {
				left = t.At(b).X
			}
			if b := neighbourBar(t, i, ln.Number, true); b != score.Nil {
				right = t.At(b).X
			}
			s.X = (left + right) / 2
		}
		if i == ln.Last {
			break
		}
	}
}

// neighbourBar returns the closest bar of the voice on the same line,
// searching forwards or backwards from i.
func neighbourBar(t *score.Tune, i score.Index, line int, forward bool) score.Index {
	for {
		if forward {
			i = t.At(i).Next
		} else {
			i = t.At(i).Prev
		}
		if i == score.Nil || t.At(i).Line != line {
			return score.Nil
		}
		if t.At(i).Kind == score.KindBar {
			return i
		}
	}
}
