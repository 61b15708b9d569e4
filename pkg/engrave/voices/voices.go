// Package voices assigns voices to staves.
//
// It runs after pitch resolution and before the merge. Three jobs:
//
//   - Auto clefs: a staff declared with the "auto" clef gets treble or bass
//     from the pitches on it, and single-voice auto staves switch clef
//     mid-tune when notes leave the range of the current clef.
//   - Floating voices: a floating voice moves note by note between its
//     staff and the one below, towards whichever is closer.
//   - Stacking roles: voices sharing a staff are marked upper (+1) or
//     lower (-1) so stems and arcs keep out of each other's way.
//
// Offsets are re-resolved at the end since staves and clefs may change.
package voices

import (
	"math"

	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/engrave/pitch"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

// Safe pitch bands of the auto clefs. A note outside the band of the
// current clef triggers a switch.
const (
	trebleLowest = -5 // A3
	bassHighest  = 7  // C5
)

// Assign runs auto-clef selection, floating staff assignment and
// multi-voice role marking, then re-resolves pitches.
func Assign(t *score.Tune, cfg config.Layout, diag *errs.Diagnostics) {
	autoClefs(t, cfg)
	floatVoices(t, cfg)
	markRoles(t)
	pitch.Resolve(t, diag)
}

// ===== Auto clefs =====

func autoClefs(t *score.Tune, cfg config.Layout) {
	for _, st := range t.Staves {
		var onStaff []*score.Voice
		auto := st.Clef.Auto
		for _, v := range t.Voices {
			if v.Staff == st.Index && !v.Floating {
				onStaff = append(onStaff, v)
				auto = auto || v.Clef.Auto
			}
		}
		if !auto || len(onStaff) == 0 {
			continue
		}

		low, total := 0, 0
		for _, v := range onStaff {
			for i := v.First; i != score.Nil; i = t.At(i).Next {
				s := t.At(i)
				if !s.IsNote() {
					continue
				}
				total++
				if averagePitch(s) < float64(cfg.AutoClefThreshold) {
					low++
				}
			}
		}
		clef := score.Treble()
		if 2*low > total {
			clef = score.Bass()
		}
		clef.Auto = true
		st.Clef = clef
		for _, v := range onStaff {
			v.Clef = clef
			for i := v.First; i != score.Nil; i = t.At(i).Next {
				if s := t.At(i); s.Kind == score.KindClef && s.Clef.Auto {
					s.Clef = clef
				}
			}
		}

		// Only a staff with a single voice switches clef mid-tune; the clef
		// of a shared staff would have to be negotiated between voices.
		if len(onStaff) == 1 {
			switchClefs(t, onStaff[0], clef)
		}
	}
}

func averagePitch(s *score.Symbol) float64 {
	sum := 0
	for _, h := range s.Heads {
		sum += h.Pitch
	}
	return float64(sum) / float64(len(s.Heads))
}

// fits reports whether every head of s sits inside the safe band of c.
func fits(s *score.Symbol, c score.Clef) bool {
	for _, h := range s.Heads {
		if c.Type == score.ClefF {
			if h.Pitch > bassHighest {
				return false
			}
		} else if h.Pitch < trebleLowest {
			return false
		}
	}
	return true
}

func other(c score.Clef) score.Clef {
	n := score.Treble()
	if c.Type != score.ClefF {
		n = score.Bass()
	}
	n.Auto = true
	return n
}

// switchClefs walks a single-voice auto staff and inserts a synthetic clef
// wherever a note leaves the band of the current clef. The clef goes at the
// furthest-back safe point: after the last bar since the previous change if
// every note since then fits the new clef, else before the first note of
// the current beam group if that run fits, else right before the note.
func switchClefs(t *score.Tune, v *score.Voice, clef score.Clef) {
	lastBar := score.Nil
	groupStart := score.Nil

	for i := v.First; i != score.Nil; i = t.At(i).Next {
		s := t.At(i)
		switch s.Kind {
		case score.KindBar:
			lastBar = i
			continue
		case score.KindClef:
			clef = s.Clef
			lastBar = score.Nil
			continue
		case score.KindNote:
		default:
			continue
		}

		if s.Has(score.FlagBeamStart) {
			groupStart = i
		}
		group := groupStart
		if s.Has(score.FlagBeamEnd) {
			groupStart = score.Nil
		}
		if !s.IsNote() || fits(s, clef) {
			continue
		}
		next := other(clef)
		if !fits(s, next) {
			continue
		}

		var at score.Index
		switch {
		case lastBar != score.Nil && runFits(t, t.At(lastBar).Next, i, next):
			at = t.InsertAfter(lastBar, score.ClefChange(next))
		case group != score.Nil && group != i && runFits(t, group, i, next):
			at = t.InsertBefore(group, score.ClefChange(next))
		default:
			at = t.InsertBefore(i, score.ClefChange(next))
		}
		t.At(at).Set(score.FlagSynthetic)
		clef = next
		lastBar = score.Nil
	}
}

// runFits reports whether every note in [from, to] fits clef c.
func runFits(t *score.Tune, from, to score.Index, c score.Clef) bool {
	for i := from; i != score.Nil; i = t.At(i).Next {
		s := t.At(i)
		if s.IsNote() && !fits(s, c) {
			return false
		}
		if i == to {
			return true
		}
	}
	return true
}

// ===== Floating voices =====

// span is a note sounding on a staff.
type span struct {
	start, end int
	low, high  int
}

// sounding collects the notes of the non-floating voices of a staff,
// excluding skip.
func sounding(t *score.Tune, staff int, skip *score.Voice) []span {
	var out []span
	for _, v := range t.Voices {
		if v == skip || v.Floating || v.Staff != staff {
			continue
		}
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			if !s.IsNote() {
				continue
			}
			sp := span{start: s.Time, end: s.Time + s.Dur, low: s.Heads[0].Pitch, high: s.Heads[0].Pitch}
			for _, h := range s.Heads[1:] {
				sp.low = min(sp.low, h.Pitch)
				sp.high = max(sp.high, h.Pitch)
			}
			out = append(out, sp)
		}
	}
	return out
}

// at returns the lowest and highest pitch sounding at time tm.
func at(spans []span, tm int) (low, high int, ok bool) {
	for _, sp := range spans {
		if sp.start <= tm && tm < sp.end {
			if !ok {
				low, high, ok = sp.low, sp.high, true
				continue
			}
			low = min(low, sp.low)
			high = max(high, sp.high)
		}
	}
	return low, high, ok
}

func middlePitch(st *score.Staff) int {
	return st.Clef.BottomPitch() + score.MiddleLine
}

func floatVoices(t *score.Tune, cfg config.Layout) {
	for _, v := range t.Voices {
		if !v.Floating {
			continue
		}
		upper, lower := v.Staff, v.Staff+1
		t.EnsureStaves(lower + 1)
		above := sounding(t, upper, v)
		below := sounding(t, lower, v)
		hyst := float64(cfg.FloatHysteresis)

		cur := -1
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			if s.IsNote() {
				p := averagePitch(s)
				up := float64(middlePitch(t.Staves[upper]))
				if low, _, ok := at(above, s.Time); ok {
					up = float64(low)
				}
				down := float64(middlePitch(t.Staves[lower]))
				if _, high, ok := at(below, s.Time); ok {
					down = float64(high)
				}
				du, dd := math.Abs(up-p), math.Abs(p-down)
				switch {
				case cur < 0 && dd < du:
					cur = lower
				case cur < 0:
					cur = upper
				case cur == upper && du-dd > hyst:
					cur = lower
				case cur == lower && dd-du > hyst:
					cur = upper
				}
			}
			if cur >= 0 {
				s.Staff = cur
			}
		}
	}
}

// ===== Stacking roles =====

func markRoles(t *score.Tune) {
	byStaff := map[int][]*score.Voice{}
	for _, v := range t.Voices {
		byStaff[v.Staff] = append(byStaff[v.Staff], v)
	}
	for _, vs := range byStaff {
		upperTaken := false
		for _, v := range vs {
			var role int8
			switch {
			case v.Second:
				role = -1
			case overlapsAny(t, v, vs):
				if upperTaken {
					role = -1
				} else {
					role = 1
					upperTaken = true
				}
			}
			for i := v.First; i != score.Nil; i = t.At(i).Next {
				t.At(i).Multi = role
			}
		}
	}
}

func extent(t *score.Tune, v *score.Voice) (int, int, bool) {
	start, end, ok := 0, 0, false
	for i := v.First; i != score.Nil; i = t.At(i).Next {
		s := t.At(i)
		if !s.IsNote() {
			continue
		}
		if !ok {
			start, ok = s.Time, true
		}
		end = max(end, s.Time+s.Dur)
	}
	return start, end, ok
}

func overlapsAny(t *score.Tune, v *score.Voice, vs []*score.Voice) bool {
	s0, e0, ok := extent(t, v)
	if !ok {
		return false
	}
	for _, w := range vs {
		if w == v {
			continue
		}
		s1, e1, ok := extent(t, w)
		if ok && s0 < e1 && s1 < e0 {
			return true
		}
	}
	return false
}
