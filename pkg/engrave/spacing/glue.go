package spacing

// Glue is the elastic width of a run of columns: the hard minimum, the
// natural width and the widest acceptable width.
type Glue struct {
	Shrink  float64
	Space   float64
	Stretch float64
}

// Add accumulates one advance.
func (g *Glue) Add(shrink, space, stretch float64) {
	g.Shrink += shrink
	g.Space += space
	g.Stretch += stretch
}

// Rigid accumulates an advance that neither shrinks nor stretches.
func (g *Glue) Rigid(w float64) { g.Add(w, w, w) }

// MinWidth is the narrowest width the glue may take when shrinking is
// limited to maxShrink of the available shrinkability.
func (g Glue) MinWidth(maxShrink float64) float64 {
	return g.Space - maxShrink*(g.Space-g.Shrink)
}

// Ratio is the solution of a line: how far every advance moves from its
// natural space towards its shrink (Alfa) or its stretch (Beta). A line
// that cannot fit is scaled proportionally instead (Scale > 0).
type Ratio struct {
	Alfa, Beta float64
	Scale      float64

	Overfull, Underfull bool
}

// Solve finds the ratio that sets g at width. Alfa is capped at maxShrink
// and Beta at 1; when even the capped shrink is too wide, every advance is
// scaled proportionally so the line ends exactly at width. Solve is pure:
// the same glue and width always give the same ratio.
func Solve(g Glue, width, maxShrink float64) Ratio {
	var r Ratio
	switch {
	case g.Space > width:
		if g.Space > g.Shrink {
			r.Alfa = (g.Space - width) / (g.Space - g.Shrink)
		}
		if r.Alfa > maxShrink || g.Space <= g.Shrink {
			r = Ratio{Overfull: true}
			if g.Space > 0 {
				r.Scale = width / g.Space
			}
		}
	case g.Space < width:
		if g.Stretch > g.Space {
			r.Beta = (width - g.Space) / (g.Stretch - g.Space)
		}
		if r.Beta > 1 || g.Stretch <= g.Space {
			r.Beta = min(r.Beta, 1)
			r.Underfull = true
		}
	}
	return r
}

// Natural is the ratio that keeps every advance at its natural space.
var Natural = Ratio{}

// Advance applies the ratio to one advance.
func (r Ratio) Advance(shrink, space, stretch float64) float64 {
	if r.Scale > 0 {
		return space * r.Scale
	}
	return r.Alfa*shrink + r.Beta*stretch + (1-r.Alfa-r.Beta)*space
}

// Width applies the ratio to the whole glue.
func (r Ratio) Width(g Glue) float64 {
	return r.Advance(g.Shrink, g.Space, g.Stretch)
}
