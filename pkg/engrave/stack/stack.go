// Package stack places the staves of a line vertically.
//
// Every staff carries an extent profile: per bucket of x, how far drawn
// symbols, stems and arcs reach above and below it. Staves are stacked top
// down. The first sits below the top margin plus whatever sticks out above
// it; each following one keeps the padding clear of the profile of the
// staff above, at least the minimum gap and at most the maximum gap below
// it.
package stack

import (
	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/score"
)

// arcSamples is the number of pieces an arc is cut into when added to a
// profile.
const arcSamples = 16

// Stack is the vertical layout of one line.
type Stack struct {
	Line int
	// Y is the top line of every staff, measured down from the top of the
	// line block; -1 for staves the line's system hides.
	Y []float64
	// Height is the total height of the line block.
	Height float64
}

// Place fills the staff profiles from the symbols and arcs of a line and
// stacks the staves. It sets Staff.Y for the line and returns the stack.
func Place(t *score.Tune, ln *score.Line, arcs []score.Arc, cfg config.Layout) Stack {
	for _, st := range t.Staves {
		st.Profile.Reset(ln.Width)
	}
	Fill(t, ln, arcs)

	shown := visible(t, t.At(ln.First).Time)
	out := Stack{Line: ln.Number, Y: make([]float64, len(t.Staves))}
	for k := range out.Y {
		out.Y[k] = -1
	}

	sc := cfg.Staves
	var prev *score.Staff
	y := 0.0
	for _, k := range shown {
		st := t.Staves[k]
		if prev == nil {
			y = sc.TopMargin + st.Profile.MaxAbove()
		} else {
			y += score.StaffHeight + Gap(&prev.Profile, &st.Profile, sc)
		}
		st.Y = y
		out.Y[k] = y
		prev = st
	}
	if prev != nil {
		out.Height = y + score.StaffHeight + prev.Profile.MaxBelow() + sc.TopMargin
	}
	return out
}

// Gap returns the distance between the bottom line of the upper staff and
// the top line of the lower one.
func Gap(upper, lower *score.Profile, sc config.Staves) float64 {
	need := 0.0
	n := max(upper.Buckets(), lower.Buckets())
	for k := range n {
		need = max(need, upper.Below(k)+lower.Above(k)+sc.Padding)
	}
	return min(sc.MaxGap, max(sc.MinGap, need))
}

// Fill adds the extents of every symbol and arc of the line to the profile
// of its staff.
func Fill(t *score.Tune, ln *score.Line, arcs []score.Arc) {
	for i := ln.First; i != score.Nil; i = t.At(i).TNext {
		s := t.At(i)
		if s.Staff < len(t.Staves) && s.Visible() {
			p := &t.Staves[s.Staff].Profile
			x0, x1 := s.X-s.Wl, s.X+s.Wr
			if s.Kind == score.KindNote && s.HasStem() {
				// Stems lean out of the head box.
				x0, x1 = min(x0, s.X-4), max(x1, s.X+4)
			}
			p.Raise(x0, x1, s.YMax)
			p.Lower(x0, x1, s.YMin)
		}
		if i == ln.Last {
			break
		}
	}

	for k := range arcs {
		a := &arcs[k]
		if a.Staff >= len(t.Staves) {
			continue
		}
		p := &t.Staves[a.Staff].Profile
		prev := a.P0
		for j := 1; j <= arcSamples; j++ {
			cur := point(a, float64(j)/arcSamples)
			if a.Dir == score.DirDown {
				p.Lower(prev.X, cur.X, min(prev.Y, cur.Y))
			} else {
				p.Raise(prev.X, cur.X, max(prev.Y, cur.Y))
			}
			prev = cur
		}
	}
}

func point(a *score.Arc, u float64) score.Point {
	v := 1 - u
	b0, b1, b2, b3 := v*v*v, 3*u*v*v, 3*u*u*v, u*u*u
	return score.Point{
		X: b0*a.P0.X + b1*a.C1.X + b2*a.C2.X + b3*a.P3.X,
		Y: b0*a.P0.Y + b1*a.C1.Y + b2*a.C2.Y + b3*a.P3.Y,
	}
}

// visible returns the staves of the system in effect at time tm, all
// staves when the tune declares no systems.
func visible(t *score.Tune, tm int) []int {
	if n := t.SystemAt(tm); n >= 0 && len(t.Systems[n].Staves) > 0 {
		var out []int
		for _, k := range t.Systems[n].Staves {
			if k >= 0 && k < len(t.Staves) {
				out = append(out, k)
			}
		}
		return out
	}
	out := make([]int, len(t.Staves))
	for k := range out {
		out[k] = k
	}
	return out
}
