// Package stem decides stem directions and beam groups.
package stem

import "github.com/matzehuels/engraver/pkg/score"

// beatGrid is the grid on which runs of very short notes are split.
const beatGrid = score.BaseLen / 4

// Direct sets the stem direction and flag count of every note and returns
// the beam groups of the tune, voice by voice.
//
// A free note points down when its average staff offset is on or above the
// middle line. The stacking role of a shared staff wins over that, and a
// voice's forced direction wins over both. All notes of a beam group share
// the direction the group average gives at beam start.
func Direct(t *score.Tune) []score.BeamGroup {
	var out []score.BeamGroup
	for _, v := range t.Voices {
		groups := collect(t, v)
		inGroup := map[score.Index]int{}
		for g, notes := range groups {
			for _, i := range notes {
				inGroup[i] = g
			}
		}

		dirs := make([]score.Direction, len(groups))
		for g, notes := range groups {
			dirs[g] = groupDirection(t, v, notes)
			out = append(out, score.BeamGroup{Voice: v.Index, Notes: notes, Stem: dirs[g]})
		}

		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			s.Clear(score.FlagBeamed | score.FlagInBeam)
			if !s.IsNote() {
				s.Stem = score.DirAuto
				continue
			}
			s.NFlags = score.FlagCount(s.Written())
			g, ok := inGroup[i]
			if !ok {
				s.Stem = direction(v, s, s.AvgOffset())
				continue
			}
			s.Stem = dirs[g]
			s.Set(score.FlagBeamed)
			if groups[g][0] != i {
				s.Set(score.FlagInBeam)
			}
		}
	}
	return out
}

// state of the beam scanner.
type state int

const (
	idle state = iota
	started
	continuing
)

// collect returns the beam groups of a voice. A group opens at a note
// flagged beam-start and closes at beam-end, at the first note too long to
// carry a beam, or at the end of the voice. A forced break, or two very
// short notes meeting on the beat grid, closes the group and opens the next.
// Groups of a single note are dropped.
func collect(t *score.Tune, v *score.Voice) [][]score.Index {
	var (
		groups [][]score.Index
		cur    []score.Index
		st     = idle
	)
	flush := func() {
		if len(cur) >= 2 {
			groups = append(groups, cur)
		}
		cur = nil
	}

	for i := v.First; i != score.Nil; i = t.At(i).Next {
		s := t.At(i)
		if !s.IsNote() {
			continue
		}
		if score.FlagCount(s.Written()) == 0 {
			flush()
			st = idle
			continue
		}

		switch st {
		case idle:
			if s.Has(score.FlagBeamStart) {
				st = started
			}
		case started, continuing:
			prev := t.At(cur[len(cur)-1])
			if s.Has(score.FlagBeamBreak) || gridBreak(prev, s) {
				flush()
				st = started
			} else {
				st = continuing
			}
		}

		if st == idle {
			continue
		}
		cur = append(cur, i)
		if s.Has(score.FlagBeamEnd) {
			flush()
			st = idle
		}
	}
	flush()
	return groups
}

// gridBreak reports whether two adjacent notes, both shorter than a
// sixteenth, meet on the beat grid.
func gridBreak(a, b *score.Symbol) bool {
	return a.Written() < score.Sixteenth && b.Written() < score.Sixteenth && b.Time%beatGrid == 0
}

func groupDirection(t *score.Tune, v *score.Voice, notes []score.Index) score.Direction {
	sum, n := 0, 0
	for _, i := range notes {
		for _, h := range t.At(i).Heads {
			sum += h.Offset
			n++
		}
	}
	first := t.At(notes[0])
	return direction(v, first, float64(sum)/float64(n))
}

func direction(v *score.Voice, s *score.Symbol, avg float64) score.Direction {
	switch {
	case v.Stem != score.DirAuto:
		return v.Stem
	case s.Multi > 0:
		return score.DirUp
	case s.Multi < 0:
		return score.DirDown
	case avg >= score.MiddleLine:
		return score.DirDown
	}
	return score.DirUp
}
