package score

import "math"

// ProfileBucket is the width in points of one profile bucket.
const ProfileBucket = 8.0

// Profile is a rolling vertical extent profile of a staff over x. Top holds
// the highest drawn point per bucket and Bot the lowest, both relative to
// the bottom staff line. An empty profile covers the staff itself.
type Profile struct {
	Top []float64
	Bot []float64
}

// Reset clears the profile for a line of the given width.
func (p *Profile) Reset(width float64) {
	n := max(1, int(math.Ceil(width/ProfileBucket)))
	p.Top = make([]float64, n)
	p.Bot = make([]float64, n)
	for k := range p.Top {
		p.Top[k] = StaffHeight
		p.Bot[k] = 0
	}
}

func (p *Profile) span(x0, x1 float64) (int, int) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	a := int(math.Floor(x0 / ProfileBucket))
	b := int(math.Floor(x1 / ProfileBucket))
	a = min(max(a, 0), len(p.Top)-1)
	b = min(max(b, 0), len(p.Top)-1)
	return a, b
}

// Raise lifts the top extent over [x0, x1] to at least y.
func (p *Profile) Raise(x0, x1, y float64) {
	if len(p.Top) == 0 {
		return
	}
	a, b := p.span(x0, x1)
	for k := a; k <= b; k++ {
		p.Top[k] = max(p.Top[k], y)
	}
}

// Lower drops the bottom extent over [x0, x1] to at most y.
func (p *Profile) Lower(x0, x1, y float64) {
	if len(p.Bot) == 0 {
		return
	}
	a, b := p.span(x0, x1)
	for k := a; k <= b; k++ {
		p.Bot[k] = min(p.Bot[k], y)
	}
}

// TopAt returns the highest extent over [x0, x1].
func (p *Profile) TopAt(x0, x1 float64) float64 {
	if len(p.Top) == 0 {
		return StaffHeight
	}
	a, b := p.span(x0, x1)
	y := p.Top[a]
	for k := a + 1; k <= b; k++ {
		y = max(y, p.Top[k])
	}
	return y
}

// BotAt returns the lowest extent over [x0, x1].
func (p *Profile) BotAt(x0, x1 float64) float64 {
	if len(p.Bot) == 0 {
		return 0
	}
	a, b := p.span(x0, x1)
	y := p.Bot[a]
	for k := a + 1; k <= b; k++ {
		y = min(y, p.Bot[k])
	}
	return y
}

// Above returns how far the profile reaches above the top line in bucket k.
func (p *Profile) Above(k int) float64 {
	if k >= len(p.Top) {
		return 0
	}
	return max(0, p.Top[k]-StaffHeight)
}

// Below returns how far the profile reaches below the bottom line in bucket k.
func (p *Profile) Below(k int) float64 {
	if k >= len(p.Bot) {
		return 0
	}
	return max(0, -p.Bot[k])
}

// MaxAbove is the largest extent above the top line.
func (p *Profile) MaxAbove() float64 {
	m := 0.0
	for k := range p.Top {
		m = max(m, p.Above(k))
	}
	return m
}

// MaxBelow is the largest extent below the bottom line.
func (p *Profile) MaxBelow() float64 {
	m := 0.0
	for k := range p.Bot {
		m = max(m, p.Below(k))
	}
	return m
}

// Buckets returns the number of buckets.
func (p *Profile) Buckets() int { return len(p.Top) }
