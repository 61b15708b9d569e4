// Package pitch resolves note pitches to staff positions.
package pitch

import (
	"slices"

	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

// Offset returns the staff position of a diatonic pitch in steps above the
// bottom line.
func Offset(pitch, transpose int, c score.Clef) int {
	return pitch + transpose - c.BottomPitch()
}

// Y converts a staff offset to points above the bottom line.
func Y(offset int) float64 {
	return float64(offset) * score.StepHeight
}

// Resolve computes the staff offset and sounding pitch of every note head
// and grace note of the tune. It walks each voice tracking clef and key
// changes; an accidental holds for the same pitch until the next bar.
// Symbols that a floating voice moved to another staff use that staff's
// clef.
//
// Chords with more than [errs.MaxChordHeads] heads are truncated with a
// structural warning. Heads are sorted bottom to top. Resolve is idempotent.
func Resolve(t *score.Tune, diag *errs.Diagnostics) {
	for _, v := range t.Voices {
		r := resolver{clef: v.Clef, key: v.Key, transpose: v.Transpose, acc: map[int]int{}}
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			switch s.Kind {
			case score.KindClef:
				r.clef = s.Clef
			case score.KindKeySig:
				r.key = s.Key
				clear(r.acc)
			case score.KindBar:
				clear(r.acc)
			case score.KindNote, score.KindGrace:
				c := r.clef
				if s.Staff != v.Staff && s.Staff < len(t.Staves) {
					c = t.Staves[s.Staff].Clef
				}
				if len(s.Heads) > errs.MaxChordHeads {
					diag.Structural(errs.At(v.Index, -1, s.Time),
						"chord of %d heads truncated to %d", len(s.Heads), errs.MaxChordHeads)
					sortHeads(s.Heads)
					s.Heads = s.Heads[:errs.MaxChordHeads]
				}
				for g := range s.Grace {
					r.heads(s.Grace[g].Heads, c)
				}
				r.heads(s.Heads, c)
			}
		}
	}
}

type resolver struct {
	clef      score.Clef
	key       score.Key
	transpose int
	acc       map[int]int // diatonic pitch -> alteration for the current measure
}

func (r *resolver) heads(heads []score.Head, c score.Clef) {
	for k := range heads {
		h := &heads[k]
		h.Offset = Offset(h.Pitch, r.transpose, c)
		if alt, ok := h.Acc.Alter(); ok {
			r.acc[h.Pitch] = alt
		}
		if alt, ok := r.acc[h.Pitch]; ok {
			h.Semi = score.Semitone(score.Head{Pitch: h.Pitch, Acc: accFor(alt)}, r.key)
		} else {
			h.Semi = score.Semitone(score.Head{Pitch: h.Pitch}, r.key)
		}
	}
	sortHeads(heads)
}

func accFor(alt int) score.Accidental {
	switch alt {
	case 1:
		return score.AccSharp
	case -1:
		return score.AccFlat
	case 2:
		return score.AccDoubleSharp
	case -2:
		return score.AccDoubleFlat
	}
	return score.AccNatural
}

func sortHeads(heads []score.Head) {
	slices.SortStableFunc(heads, func(a, b score.Head) int {
		return a.Pitch - b.Pitch
	})
}
