// Package slur computes the curves of slurs and ties.
//
// A [Resolver] pairs every slur and tie of a tune up front, then emits the
// drawable segments line by line. An arc whose end lies on a later line is
// kept pending and continues at the left margin of the next line; an arc
// crossing a hard bar (double, thick or repeat) is split there. Each
// segment is a cubic Bezier with its control points at a fifth and four
// fifths of its span, lifted in the arc direction by a height that grows
// with the span, and raised further where notes under a slur would
// collide with it.
//
// The direction of an arc is, in order: the one written in the source; the
// side of its voice on a shared staff; away from the majority of the stems
// it spans; above when its notes average on or above the middle line.
package slur

import (
	"math"

	"github.com/matzehuels/engraver/pkg/config"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

const (
	headHalf   = 4.0  // tie ends sit this far from the head centre
	stemOffset = 3.5  // head centre to stem
	clearance  = 2.0  // between an arc and what it passes over
	marginLead = 12.0 // continuation start before the first note of a line
	barGap     = 4.0  // continuation start after a hard bar
	halfTieLen = 12.0
)

// Resolver produces the arcs of one tune, line by line. Lines must be
// passed in order.
type Resolver struct {
	t    *score.Tune
	cfg  config.Layout
	diag *errs.Diagnostics

	pairs  []pair
	dirs   []score.Direction
	next   int
	active []int
}

// NewResolver pairs the slurs and ties of a placed tune and decides their
// directions.
func NewResolver(t *score.Tune, cfg config.Layout, diag *errs.Diagnostics) *Resolver {
	pairs := append(pairSlurs(t, diag), pairTies(t, diag)...)
	sortPairs(t, pairs)
	r := &Resolver{t: t, cfg: cfg, diag: diag, pairs: pairs, dirs: make([]score.Direction, len(pairs))}
	for k := range pairs {
		r.dirs[k] = r.direction(&pairs[k])
	}
	return r
}

// Pending returns the number of arcs continuing past the last line given to
// Line.
func (r *Resolver) Pending() int { return len(r.active) }

// Line returns the arc segments drawn on a line.
func (r *Resolver) Line(ln *score.Line) []score.Arc {
	t := r.t
	for r.next < len(r.pairs) && t.At(r.pairs[r.next].start).Line <= ln.Number {
		r.active = append(r.active, r.next)
		r.next++
	}

	var out []score.Arc
	var keep []int
	for _, k := range r.active {
		p := &r.pairs[k]
		out = append(out, r.segments(p, r.dirs[k], ln)...)
		if last := r.lastLine(p); last > ln.Number {
			keep = append(keep, k)
		}
	}
	r.active = keep
	return out
}

// lastLine is the line on which the last segment of a pair is drawn.
func (r *Resolver) lastLine(p *pair) int {
	t := r.t
	switch {
	case p.end != score.Nil:
		return t.At(p.end).Line
	case p.carry != score.Nil:
		return max(t.At(p.start).Line, t.At(p.carry).Line)
	}
	return t.At(p.start).Line
}

// ===== Direction =====

func (r *Resolver) direction(p *pair) score.Direction {
	if p.dir != score.DirAuto {
		return p.dir
	}
	t := r.t
	s := t.At(p.start)
	switch {
	case s.Multi > 0:
		return score.DirUp
	case s.Multi < 0:
		return score.DirDown
	}

	// Ties on the inner heads of a chord split outwards.
	if p.kind == score.ArcTie && p.startHead >= 0 {
		n := len(s.Heads)
		switch pos := 2*p.startHead + 1; {
		case pos > n:
			return score.DirUp
		case pos < n:
			return score.DirDown
		}
	}

	up, down, sum, n := 0, 0, 0.0, 0
	for _, i := range r.span(p) {
		s := t.At(i)
		switch s.Stem {
		case score.DirUp:
			up++
		case score.DirDown:
			down++
		}
		sum += s.AvgOffset()
		n++
	}
	switch {
	case up > down:
		return score.DirDown
	case down > up:
		return score.DirUp
	case n > 0 && sum/float64(n) >= score.MiddleLine:
		return score.DirUp
	}
	return score.DirDown
}

// span returns the real notes of the voice from the start to the end of a
// pair, both included.
func (r *Resolver) span(p *pair) []score.Index {
	t := r.t
	var out []score.Index
	for i := p.start; i != score.Nil; i = t.At(i).Next {
		s := t.At(i)
		if s.IsNote() && !s.Has(score.FlagGhost) {
			out = append(out, i)
		}
		if i == p.end || p.end == score.Nil {
			break
		}
	}
	return out
}

// ===== Segments =====

// point is one end of a segment: on a note, or at a margin or bar.
type point struct {
	x, y float64
	note score.Index
	head int
}

func (r *Resolver) segments(p *pair, dir score.Direction, ln *score.Line) []score.Arc {
	t := r.t
	start := t.At(p.start)
	startOn := start.Line == ln.Number

	if p.end == score.Nil {
		return r.openTie(p, dir, ln)
	}

	end := t.At(p.end)
	if start.Staff != end.Staff {
		if startOn {
			r.diag.Degenerate(errs.At(start.Voice, ln.Number, start.Time), "%s across staves dropped", p.kind)
		}
		return nil
	}
	endOn := end.Line == ln.Number

	var left, right point
	switch {
	case startOn:
		left = r.end(p, p.start, p.startHead, dir, true)
	default:
		left = point{x: r.lineStart(p, ln), note: score.Nil}
	}
	switch {
	case endOn:
		right = r.end(p, p.end, p.endHead, dir, false)
	default:
		right = point{x: ln.Width, note: score.Nil}
	}
	switch {
	case left.note == score.Nil && right.note == score.Nil:
		left.y = r.end(p, p.start, p.startHead, dir, true).y
		right.y = left.y
	case left.note == score.Nil:
		left.y = right.y
	case right.note == score.Nil:
		right.y = left.y
	}

	// Split at hard bars inside the span on this line.
	points := []point{left}
	for i := t.At(p.start).Next; i != score.Nil && i != p.end; i = t.At(i).Next {
		s := t.At(i)
		if s.Kind == score.KindBar && s.Bar.Hard() && s.Line == ln.Number && s.X > left.x && s.X < right.x {
			u := (s.X - left.x) / (right.x - left.x)
			y := left.y + u*(right.y-left.y)
			points = append(points, point{x: s.X, y: y, note: score.Nil}, point{x: s.X + barGap, y: y, note: score.Nil})
		}
	}
	points = append(points, right)

	var out []score.Arc
	for k := 0; k+1 < len(points); k += 2 {
		a, b := points[k], points[k+1]
		out = append(out, r.curve(p, dir, ln, a, b, a.note == score.Nil, b.note == score.Nil))
	}
	return out
}

// openTie draws a tie that found no partner. It runs a short way past its
// note, or to the right margin when the voice continues on a later line,
// where a half tie picks it up at the left margin.
func (r *Resolver) openTie(p *pair, dir score.Direction, ln *score.Line) []score.Arc {
	t := r.t
	from := t.At(p.start).Line
	a := r.end(p, p.start, p.startHead, dir, true)
	carried := r.lastLine(p) > from
	switch {
	case from == ln.Number:
		b := point{x: a.x + halfTieLen, y: a.y, note: score.Nil}
		if carried {
			b.x = max(ln.Width, a.x+headHalf)
		}
		return []score.Arc{r.curve(p, dir, ln, a, b, false, true)}
	case carried && r.lastLine(p) == ln.Number:
		x := r.lineStart(p, ln)
		left := point{x: x, y: a.y, note: score.Nil}
		right := point{x: x + halfTieLen, y: a.y, note: score.Nil}
		return []score.Arc{r.curve(p, dir, ln, left, right, true, true)}
	}
	return nil
}

// lineStart is where an arc continued from an earlier line begins.
func (r *Resolver) lineStart(p *pair, ln *score.Line) float64 {
	t := r.t
	for i := p.start; i != score.Nil; i = t.At(i).Next {
		s := t.At(i)
		if s.Line == ln.Number && s.Timed() {
			return max(0, s.X-marginLead)
		}
		if i == p.end {
			break
		}
	}
	return 0
}

// end computes the attachment of an arc to a note.
func (r *Resolver) end(p *pair, i score.Index, head int, dir score.Direction, atStart bool) point {
	s := r.t.At(i)
	d := float64(dir)

	var y float64
	switch {
	case head >= 0 && head < len(s.Heads):
		y = s.Heads[head].Y()
	case dir == score.DirUp:
		y = float64(s.TopOffset()) * score.StepHeight
	default:
		y = float64(s.BottomOffset()) * score.StepHeight
	}

	if p.kind == score.ArcTie {
		x := s.X + headHalf
		if !atStart {
			x = s.X - headHalf
		}
		return point{x: x, y: y + d*clearance, note: i, head: head}
	}

	x := s.X
	y += d * (score.StepHeight + 1)
	if s.HasStem() && s.Stem == dir {
		// Clear the stem, or the beam it carries.
		y = s.StemY + d*clearance
		if dir == score.DirUp {
			x += stemOffset
		} else {
			x -= stemOffset
		}
	}
	return point{x: x, y: y, note: i, head: head}
}

// curve builds the Bezier of one segment and lifts it over the notes it
// passes.
func (r *Resolver) curve(p *pair, dir score.Direction, ln *score.Line, a, b point, halfStart, halfEnd bool) score.Arc {
	cfg := r.cfg.Slur
	d := float64(dir)
	span := math.Max(b.x-a.x, 1)

	h := min(max(span*cfg.HeightFactor, cfg.MinHeight), cfg.MaxHeight)
	if p.kind == score.ArcTie {
		h = min(h, cfg.MaxHeight/2)
	}

	arc := score.Arc{
		Kind:      p.kind,
		Start:     a.note,
		End:       b.note,
		StartHead: p.startHead,
		EndHead:   p.endHead,
		Dir:       dir,
		Staff:     r.t.At(p.start).Staff,
		Line:      ln.Number,
		P0:        score.Point{X: a.x, Y: a.y},
		C1:        score.Point{X: a.x + 0.2*span, Y: a.y + 0.2*(b.y-a.y) + d*h},
		C2:        score.Point{X: a.x + 0.8*span, Y: a.y + 0.8*(b.y-a.y) + d*h},
		P3:        score.Point{X: b.x, Y: b.y},
		HalfStart: halfStart,
		HalfEnd:   halfEnd,
	}
	if a.note == score.Nil {
		arc.StartHead = -1
	}
	if b.note == score.Nil {
		arc.EndHead = -1
	}

	if p.kind == score.ArcSlur {
		r.lift(&arc, p, ln, d)
	}
	return arc
}

// lift raises the control points of a slur where a note between its ends
// reaches past the curve. The raise is shared between the two control
// points by their weight at the note.
func (r *Resolver) lift(arc *score.Arc, p *pair, ln *score.Line, d float64) {
	t := r.t
	x0, x1 := arc.P0.X, arc.P3.X
	if x1-x0 <= 0 {
		return
	}
	for i := t.At(p.start).Next; i != score.Nil && i != p.end; i = t.At(i).Next {
		s := t.At(i)
		if !s.IsNote() || s.Has(score.FlagGhost) || s.Line != ln.Number || s.X <= x0 || s.X >= x1 {
			continue
		}
		u := (s.X - x0) / (x1 - x0)
		w1 := 3 * u * (1 - u) * (1 - u)
		w2 := 3 * u * u * (1 - u)
		need := extent(s, d) + d*clearance
		deficit := d * (need - bezier(arc, u))
		if deficit <= 0 {
			continue
		}
		n := w1*w1 + w2*w2
		arc.C1.Y += d * deficit * w1 / n
		arc.C2.Y += d * deficit * w2 / n
	}
}

// extent is how far a note reaches on side d: its outer head, or its stem
// tip when the stem points that way.
func extent(s *score.Symbol, d float64) float64 {
	if d > 0 {
		y := float64(s.TopOffset())*score.StepHeight + score.StepHeight
		if s.HasStem() && s.Stem == score.DirUp {
			y = max(y, s.StemY)
		}
		return y
	}
	y := float64(s.BottomOffset())*score.StepHeight - score.StepHeight
	if s.HasStem() && s.Stem == score.DirDown {
		y = min(y, s.StemY)
	}
	return y
}

// bezier evaluates the y of the arc at parameter u.
func bezier(a *score.Arc, u float64) float64 {
	v := 1 - u
	return v*v*v*a.P0.Y + 3*u*v*v*a.C1.Y + 3*u*u*v*a.C2.Y + u*u*u*a.P3.Y
}

// Peak returns the point of the arc farthest in its direction, sampled
// along the curve. The stacker uses it for staff extents.
func Peak(a *score.Arc) score.Point {
	best := a.P0
	d := float64(a.Dir)
	if d == 0 {
		d = 1
	}
	for k := 1; k <= 16; k++ {
		u := float64(k) / 16
		v := 1 - u
		x := v*v*v*a.P0.X + 3*u*v*v*a.C1.X + 3*u*u*v*a.C2.X + u*u*u*a.P3.X
		y := bezier(a, u)
		if d*y > d*best.Y {
			best = score.Point{X: x, Y: y}
		}
	}
	return best
}
