// Package beam places beams and stems.
//
// Each beam group is fitted by least squares through its default stem
// tips, clamped to the maximum slope and flattened when nearly level or
// when the notes do not line up. The beam is then pushed away from the
// heads until every stem reaches its minimum length and the inner beam
// clears clefs, bars and grace groups under it. A level beam inside the
// staff is snapped outwards onto a staff line or space.
//
// A group broken by a line cut is drawn in pieces: a ghost note is spliced
// in at the end of the first line and the start of the next one so each
// piece runs to the margin. A group whose notes sit on two staves is
// rejected and its notes keep their flags.
//
// Coordinates are staff-relative points: x from the line start, y up from
// the bottom staff line.
package beam

import (
	"math"

	"github.com/matzehuels/engraver/pkg/config"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

const (
	stemOffset = 3.5  // head centre to stem
	ghostLead  = 10.0 // ghost note to first note at a line start
)

// Polygon is a beam slab: the two outer corners, then the two inner ones.
type Polygon [4]score.Point

// Beam is one placed piece of a beam group.
type Beam struct {
	Voice int
	Staff int
	Line  int
	Stem  score.Direction
	Notes []score.Index

	// The outer edge of the primary beam is y = Slope*(x-X0) + Offset.
	X0, Slope, Offset float64

	Polygons []Polygon
}

// Y returns the outer edge of the primary beam at x.
func (b *Beam) Y(x float64) float64 { return b.Slope*(x-b.X0) + b.Offset }

// StemX returns the x of the stem of a note, right of the head for an up
// stem and left of it for a down stem.
func StemX(s *score.Symbol) float64 {
	if s.Stem == score.DirDown {
		return s.X - stemOffset
	}
	return s.X + stemOffset
}

// Place fits every accepted beam group, splitting groups at line cuts, and
// then sets the stems of the notes no beam covers. Rejected groups are
// marked in place. Lines may grow to take in ghost notes.
func Place(t *score.Tune, lines []score.Line, groups []score.BeamGroup, cfg config.Layout, diag *errs.Diagnostics) []Beam {
	var out []Beam
	for g := range groups {
		grp := &groups[g]
		if len(grp.Notes) < 2 {
			continue
		}
		if crossStaff(t, grp) {
			reject(t, grp)
			first := t.At(grp.Notes[0])
			diag.Degenerate(errs.At(grp.Voice, first.Line, first.Time), "beam across staves dropped")
			continue
		}
		for _, seg := range segments(t, lines, grp.Notes) {
			out = append(out, fit(t, seg, grp, cfg))
		}
	}
	Stems(t, cfg)
	return out
}

func crossStaff(t *score.Tune, grp *score.BeamGroup) bool {
	staff := t.At(grp.Notes[0]).Staff
	for _, i := range grp.Notes[1:] {
		if t.At(i).Staff != staff {
			return true
		}
	}
	return false
}

func reject(t *score.Tune, grp *score.BeamGroup) {
	grp.Rejected = true
	for _, i := range grp.Notes {
		t.At(i).Clear(score.FlagBeamed | score.FlagInBeam)
	}
}

// ===== Line cuts =====

// segments splits a group at line cuts and splices ghost notes at the
// margins so every piece has at least two notes.
func segments(t *score.Tune, lines []score.Line, notes []score.Index) [][]score.Index {
	var segs [][]score.Index
	start := 0
	for k := 1; k <= len(notes); k++ {
		if k < len(notes) && t.At(notes[k]).Line == t.At(notes[k-1]).Line {
			continue
		}
		segs = append(segs, append([]score.Index(nil), notes[start:k]...))
		start = k
	}
	if len(segs) == 1 {
		return segs
	}

	for k := range segs {
		seg := segs[k]
		if k < len(segs)-1 {
			last := seg[len(seg)-1]
			ln := &lines[t.At(last).Line]
			g := ghostAfter(t, ln, last)
			segs[k] = append(seg, g)
		}
		if k > 0 {
			first := segs[k][0]
			ln := &lines[t.At(first).Line]
			g := ghostBefore(t, ln, first)
			segs[k] = append([]score.Index{g}, segs[k]...)
		}
	}
	return segs
}

func ghost(src *score.Symbol) score.Symbol {
	g := score.Symbol{
		Kind:   score.KindNote,
		Flags:  score.FlagGhost | score.FlagInvisible | score.FlagSynthetic | score.FlagBeamed | score.FlagInBeam,
		Len:    src.Written(),
		Stem:   src.Stem,
		NFlags: src.NFlags,
		Multi:  src.Multi,
		YMax:   src.YMax,
		YMin:   src.YMin,
	}
	g.Heads = make([]score.Head, len(src.Heads))
	for k, h := range src.Heads {
		g.Heads[k] = score.Head{Pitch: h.Pitch, Offset: h.Offset, Semi: h.Semi}
	}
	return g
}

// ghostAfter ends a beam piece at the right margin of the line.
func ghostAfter(t *score.Tune, ln *score.Line, note score.Index) score.Index {
	g := ghost(t.At(note))
	i := t.InsertAfter(note, g)
	tail := t.At(ln.Last)
	s := t.At(i)
	s.Line, s.Column, s.X = ln.Number, tail.Column, ln.Width
	s.Time = max(s.Time, tail.Time)
	t.InsertTimeAfter(ln.Last, i)
	ln.Last = i
	return i
}

// ghostBefore starts a beam piece at the left margin of the line.
func ghostBefore(t *score.Tune, ln *score.Line, note score.Index) score.Index {
	g := ghost(t.At(note))
	i := t.InsertBefore(note, g)
	head := t.At(ln.First)
	s := t.At(i)
	s.Line, s.Column, s.Time = ln.Number, head.Column, head.Time
	s.X = max(head.X, t.At(note).X-ghostLead)
	t.InsertTimeBefore(ln.First, i)
	ln.First = i
	return i
}

// ===== Fitting =====

func fit(t *score.Tune, notes []score.Index, grp *score.BeamGroup, cfg config.Layout) Beam {
	bc := cfg.Beam
	dir := float64(grp.Stem)
	if dir == 0 {
		dir = 1
	}
	first := t.At(notes[0])
	b := Beam{
		Voice: grp.Voice,
		Staff: first.Staff,
		Line:  first.Line,
		Stem:  score.Direction(dir),
		Notes: notes,
		X0:    StemX(first),
	}

	// Default stem tips.
	xs := make([]float64, len(notes))
	ys := make([]float64, len(notes))
	for k, i := range notes {
		s := t.At(i)
		s.Stem = b.Stem
		xs[k] = StemX(s) - b.X0
		ys[k] = near(s, dir) + dir*bc.StemLen
	}

	a, off, r2 := leastSquares(xs, ys)
	switch {
	case math.Abs(a) > bc.MaxSlope:
		a = math.Copysign(bc.MaxSlope, a)
		off = mean(ys) - a*mean(xs)
	case math.Abs(a) < bc.FlatThreshold || r2 < 0.25:
		a = 0
		off = mean(ys)
	}

	// Minimum stem lengths.
	for k, i := range notes {
		s := t.At(i)
		need := near(s, dir) + dir*bc.StemMin(s.NFlags) - a*xs[k]
		off = push(off, need, dir)
	}

	// Obstacles under the beam.
	depth := thickness(t, notes, bc)
	for _, y := range obstacles(t, notes, b.Staff, b.X0, xs[len(xs)-1]+b.X0, dir) {
		need := y.y + dir*(depth+2) - a*(y.x-b.X0)
		off = push(off, need, dir)
	}

	if a == 0 && off > 0 && off < score.StaffHeight {
		off = snap(off, dir)
	}
	b.Slope, b.Offset = a, off

	for _, i := range notes {
		s := t.At(i)
		s.StemY = b.Y(StemX(s))
		if dir > 0 {
			s.YMax = max(s.YMax, s.StemY)
		} else {
			s.YMin = min(s.YMin, s.StemY)
		}
	}
	b.Polygons = polygons(t, &b, bc)
	return b
}

// near returns the y of the head closest to the beam.
func near(s *score.Symbol, dir float64) float64 {
	if dir > 0 {
		return float64(s.TopOffset()) * score.StepHeight
	}
	return float64(s.BottomOffset()) * score.StepHeight
}

// push moves the beam offset outwards so it is at least need.
func push(off, need, dir float64) float64 {
	if dir > 0 {
		return max(off, need)
	}
	return min(off, need)
}

// snap moves a level beam outwards onto the nearest line or space.
func snap(off, dir float64) float64 {
	if dir > 0 {
		return math.Ceil(off/score.StepHeight) * score.StepHeight
	}
	return math.Floor(off/score.StepHeight) * score.StepHeight
}

// thickness is the depth of the beam stack of a group, outer edge of the
// primary beam to inner edge of the deepest.
func thickness(t *score.Tune, notes []score.Index, bc config.Beam) float64 {
	n := 1
	for _, i := range notes {
		n = max(n, t.At(i).NFlags)
	}
	return bc.Depth + float64(n-1)*bc.Spacing
}

func leastSquares(xs, ys []float64) (a, b, r2 float64) {
	n := float64(len(xs))
	mx, my := mean(xs), mean(ys)
	var sxx, sxy, syy float64
	for k := range xs {
		dx, dy := xs[k]-mx, ys[k]-my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 || n < 2 {
		return 0, my, 1
	}
	a = sxy / sxx
	b = my - a*mx
	r2 = 1
	if syy > 0 {
		r2 = sxy * sxy / (sxx * syy)
	}
	return a, b, r2
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

type point struct{ x, y float64 }

// obstacles returns the outer extents of clefs, bars and grace groups on
// the staff strictly between the ends of the beam.
func obstacles(t *score.Tune, notes []score.Index, staff int, x0, x1 float64, dir float64) []point {
	var out []point
	first, last := notes[0], notes[len(notes)-1]
	for i := t.At(first).TNext; i != score.Nil && i != last; i = t.At(i).TNext {
		s := t.At(i)
		if s.Staff != staff || s.X <= x0 || s.X >= x1 || !s.Visible() {
			continue
		}
		switch s.Kind {
		case score.KindClef, score.KindBar, score.KindGrace:
			y := s.YMax
			if dir < 0 {
				y = s.YMin
			}
			out = append(out, point{s.X, y})
		}
	}
	return out
}

// ===== Polygons =====

func polygons(t *score.Tune, b *Beam, bc config.Beam) []Polygon {
	dir := float64(b.Stem)
	xs := make([]float64, len(b.Notes))
	levels := make([]int, len(b.Notes))
	maxLevel := 1
	for k, i := range b.Notes {
		s := t.At(i)
		xs[k] = StemX(s)
		levels[k] = max(1, s.NFlags)
		maxLevel = max(maxLevel, levels[k])
	}

	slab := func(xa, xb float64, level int) Polygon {
		shift := -dir * float64(level-1) * bc.Spacing
		ya, yb := b.Y(xa)+shift, b.Y(xb)+shift
		return Polygon{
			{X: xa, Y: ya}, {X: xb, Y: yb},
			{X: xb, Y: yb - dir*bc.Depth}, {X: xa, Y: ya - dir*bc.Depth},
		}
	}

	out := []Polygon{slab(xs[0], xs[len(xs)-1], 1)}
	for level := 2; level <= maxLevel; level++ {
		for k := 0; k < len(xs); {
			if levels[k] < level {
				k++
				continue
			}
			j := k
			for j+1 < len(xs) && levels[j+1] >= level {
				j++
			}
			if j > k {
				out = append(out, slab(xs[k], xs[j], level))
			} else {
				xa, xb := partial(xs, k)
				out = append(out, slab(xa, xb, level))
			}
			k = j + 1
		}
	}
	return out
}

// partialLen is the longest stub of a beam on a single note.
const partialLen = 7.0

// partial returns the extent of a stub beam on note k: towards the next
// note, or towards the previous one at the end of the group.
func partial(xs []float64, k int) (float64, float64) {
	if k == len(xs)-1 {
		l := min(partialLen, (xs[k]-xs[k-1])/2)
		return xs[k] - l, xs[k]
	}
	l := min(partialLen, (xs[k+1]-xs[k])/2)
	return xs[k], xs[k] + l
}
