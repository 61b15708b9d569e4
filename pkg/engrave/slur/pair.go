package slur

import (
	"slices"

	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

// pair is a matched slur or tie before it is cut into drawable segments.
// End is Nil for a tie with nothing to tie to; such a tie is carried to the
// line of carry when that is a later line than its start.
type pair struct {
	kind       score.ArcKind
	start, end score.Index
	carry      score.Index
	startHead  int
	endHead    int
	dir        score.Direction // explicit direction, DirAuto if free
}

// headRef returns the head index an arc attaches to: -1 for a single-head
// note, which means the whole note.
func headRef(s *score.Symbol, k int) int {
	if len(s.Heads) <= 1 {
		return -1
	}
	return k
}

// pairSlurs matches slur starts and ends per voice, innermost first.
func pairSlurs(t *score.Tune, diag *errs.Diagnostics) []pair {
	var out []pair
	type open struct {
		at   score.Index
		head int
		dir  score.Direction
	}
	for _, v := range t.Voices {
		var stack []open
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			if !s.IsNote() || s.Has(score.FlagGhost) {
				continue
			}
			for k, h := range s.Heads {
				for range h.SlurEnd {
					if len(stack) == 0 {
						diag.Structural(errs.At(v.Index, s.Line, s.Time), "slur end without start")
						continue
					}
					o := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					dir := o.dir
					if dir == score.DirAuto {
						dir = h.SlurDir
					}
					out = append(out, pair{
						kind: score.ArcSlur, start: o.at, end: i, carry: score.Nil,
						startHead: o.head, endHead: headRef(s, k), dir: dir,
					})
				}
			}
			for k, h := range s.Heads {
				for range h.SlurStart {
					stack = append(stack, open{at: i, head: headRef(s, k), dir: h.SlurDir})
				}
			}
		}
		for _, o := range stack {
			s := t.At(o.at)
			diag.Structural(errs.At(v.Index, s.Line, s.Time), "unterminated slur dropped")
		}
	}
	return out
}

// pairTies matches every tied head with a head of the next note of the
// voice: the same sounding pitch first, else a pitch one semitone away
// spelled on another step. A tie that finds no partner is kept as a half
// tie and reported.
func pairTies(t *score.Tune, diag *errs.Diagnostics) []pair {
	var out []pair
	for _, v := range t.Voices {
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			if !s.IsNote() || s.Has(score.FlagGhost) {
				continue
			}
			next := nextNote(t, i)
			var used []bool
			if next != score.Nil {
				used = make([]bool, len(t.At(next).Heads))
			}
			for k, h := range s.Heads {
				if !h.TieStart {
					continue
				}
				p := pair{kind: score.ArcTie, start: i, end: score.Nil, carry: score.Nil, startHead: headRef(s, k), dir: h.TieDir}
				if next != score.Nil {
					if m := matchHead(t.At(next).Heads, h, used); m >= 0 {
						used[m] = true
						p.end = next
						p.endHead = headRef(t.At(next), m)
						if p.dir == score.DirAuto {
							p.dir = t.At(next).Heads[m].TieDir
						}
					}
				}
				if p.end == score.Nil {
					diag.Structural(errs.At(v.Index, s.Line, s.Time), "tie without a matching note")
					p.carry = nextTimed(t, i)
				}
				out = append(out, p)
			}
		}
	}
	return out
}

// nextNote returns the next real note of the voice after i.
func nextNote(t *score.Tune, i score.Index) score.Index {
	for j := t.At(i).Next; j != score.Nil; j = t.At(j).Next {
		s := t.At(j)
		if s.IsNote() && !s.Has(score.FlagGhost) {
			return j
		}
		if s.Kind == score.KindRest {
			return score.Nil
		}
	}
	return score.Nil
}

// nextTimed returns the next real note or rest of the voice after i.
func nextTimed(t *score.Tune, i score.Index) score.Index {
	for j := t.At(i).Next; j != score.Nil; j = t.At(j).Next {
		if s := t.At(j); s.Timed() && !s.Has(score.FlagGhost) {
			return j
		}
	}
	return score.Nil
}

func matchHead(heads []score.Head, h score.Head, used []bool) int {
	for k, c := range heads {
		if !used[k] && c.Semi == h.Semi {
			return k
		}
	}
	for k, c := range heads {
		if !used[k] && c.Pitch != h.Pitch && abs(c.Semi-h.Semi) == 1 {
			return k
		}
	}
	return -1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sortPairs orders pairs by the position of their start in the time chain.
func sortPairs(t *score.Tune, pairs []pair) {
	pos := make(map[score.Index]int, t.Len())
	n := 0
	for i := t.First; i != score.Nil; i = t.At(i).TNext {
		pos[i] = n
		n++
	}
	slices.SortStableFunc(pairs, func(a, b pair) int {
		return pos[a.start] - pos[b.start]
	})
}
