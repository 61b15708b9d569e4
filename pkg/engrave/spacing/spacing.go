// Package spacing computes the horizontal layout of a tune.
//
// # Columns
//
// The merged time chain is split into columns: runs of symbols sharing a
// column number, placed at one x. Every column after the first of a line
// gets three advances from its predecessor:
//
//   - shrink, the hard minimum keeping glyphs on each staff apart,
//   - space, the natural advance, growing with the time elapsed since the
//     previous column by a constant factor per doubling of duration,
//   - stretch, space * (1 + max stretch).
//
// Spacing inside beam groups and tuplets is compressed.
//
// # Lines
//
// Columns are packed greedily. When a column no longer fits even at
// maximum shrink, the cutter walks back to the nearest bar (the bar stays
// on the line), else to a key signature (which moves to the next line),
// else cuts before the overflowing column. Explicit line breaks and system
// changes always cut. Every line but the first starts with a synthetic
// clef and key signature per staff.
//
// # Solving
//
// Each line is solved for the target width with [Solve]. The last line of
// a tune keeps the ratio of the line before it unless stretch-last is set.
package spacing

import (
	"math"

	"github.com/matzehuels/engraver/pkg/config"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/glyph"
	"github.com/matzehuels/engraver/pkg/score"
)

// Column numbers of the synthetic signatures until the chain is renumbered.
const (
	clefColumn = -1
	keyColumn  = -2
)

// Engine lays out tunes horizontally with a fixed policy.
type Engine struct {
	cfg     config.Layout
	metrics glyph.Metrics
	diag    *errs.Diagnostics
}

// New returns an engine. A nil metrics uses [glyph.Default].
func New(cfg config.Layout, m glyph.Metrics, diag *errs.Diagnostics) *Engine {
	if m == nil {
		m = glyph.Default()
	}
	return &Engine{cfg: cfg, metrics: m, diag: diag}
}

// Layout measures every symbol, cuts the time chain into lines, inserts the
// line-start signatures and places every line. The tune must be merged.
func (e *Engine) Layout(t *score.Tune) []score.Line {
	if t.First == score.Nil {
		return nil
	}
	for i := t.First; i != score.Nil; i = t.At(i).TNext {
		Measure(t.At(i), e.metrics, e.cfg)
	}

	cols := columns(t)
	starts := e.cut(t, cols)
	heads := e.insertSignatures(t, cols, starts)
	renumber(t)

	lines := split(t, heads)
	e.Place(t, lines)

	for k := range lines {
		ln := &lines[k]
		switch {
		case ln.Overfull:
			e.diag.Add(errs.ErrCodeOverflow, errs.At(-1, ln.Number, t.At(ln.First).Time),
				"overfull line %d: %.1fpt at most shrink for %.1fpt", ln.Number, ln.Space-e.cfg.MaxShrink*(ln.Space-ln.Shrink), e.cfg.Width)
		case ln.Underfull:
			e.diag.Add(errs.ErrCodeUnderflow, errs.At(-1, ln.Number, t.At(ln.First).Time),
				"underfull line %d: %.1fpt at most stretch for %.1fpt", ln.Number, ln.Stretch, e.cfg.Width)
		}
	}
	return lines
}

// Place solves every line and assigns the x position of its symbols. It
// only reads the measured extents, so placing again reproduces the same
// positions.
func (e *Engine) Place(t *score.Tune, lines []score.Line) {
	for k := range lines {
		for i := lines[k].First; i != score.Nil; i = t.At(i).TNext {
			t.At(i).Line = lines[k].Number
			if i == lines[k].Last {
				break
			}
		}
	}

	var prev *score.Line
	for k := range lines {
		ln := &lines[k]
		cols := lineColumns(t, ln)
		if len(cols) == 0 {
			continue
		}
		f := e.newFitter(t, &cols[0], 0)
		for c := 1; c < len(cols); c++ {
			f.add(&cols[c])
		}
		g := f.glue
		g.Rigid(f.trailing())

		r := Solve(g, e.cfg.Width, e.cfg.MaxShrink)
		// A loose last line keeps the spacing of the line above it.
		if k == len(lines)-1 && !e.cfg.StretchLast && r.Underfull {
			r = Natural
			if prev != nil && prev.Scale == 0 {
				r = Ratio{Alfa: prev.Alfa, Beta: prev.Beta}
				if r.Width(g) > e.cfg.Width {
					r = Solve(g, e.cfg.Width, e.cfg.MaxShrink)
				}
			}
			r.Underfull = true
		}

		x := 0.0
		for c := range cols {
			col := &cols[c]
			x += r.Advance(col.shrink, col.space, col.stretch)
			for i := col.first; ; i = t.At(i).TNext {
				s := t.At(i)
				s.X = x
				s.Shrink, s.Space, s.Stretch = col.shrink, col.space, col.stretch
				if i == col.last {
					break
				}
			}
		}

		ln.Width = r.Width(g)
		ln.Shrink, ln.Space, ln.Stretch = g.Shrink, g.Space, g.Stretch
		ln.Alfa, ln.Beta, ln.Scale = r.Alfa, r.Beta, r.Scale
		ln.Overfull, ln.Underfull = r.Overfull, r.Underfull
		CenterMeasureRests(t, ln)
		prev = ln
	}
}

// NoteSpace is the natural advance after dt ticks: the quarter space,
// multiplied by the note spacing factor once per doubling of duration.
func NoteSpace(dt int, sp config.Spacing) float64 {
	if dt <= 0 {
		return 0
	}
	return sp.QuarterSpace * math.Pow(sp.NoteSpacingFactor, math.Log2(float64(dt)/score.Quarter))
}

// ===== Columns =====

// column is a run of simultaneous symbols placed at one x. Extents are per
// staff; a negative wl marks a staff with nothing to draw in the column.
type column struct {
	first, last score.Index
	time        int

	wl, wr []float64

	eol, bar, key bool
	beam, tuplet  bool

	shrink, space, stretch float64
}

func newColumn(t *score.Tune, first score.Index) column {
	n := len(t.Staves)
	c := column{first: first, last: first, time: t.At(first).Time, wl: make([]float64, n), wr: make([]float64, n)}
	for k := range c.wl {
		c.wl[k] = -1
	}
	return c
}

func (c *column) include(s *score.Symbol) {
	if s.Wl+s.Wr > 0 && s.Staff < len(c.wl) {
		c.wl[s.Staff] = max(c.wl[s.Staff], s.Wl)
		c.wr[s.Staff] = max(c.wr[s.Staff], s.Wr)
	}
	c.eol = c.eol || s.Has(score.FlagEOL)
	c.bar = c.bar || s.Kind == score.KindBar
	c.key = c.key || s.Kind == score.KindKeySig
}

// finish decides whether the column is spaced as part of a beam group or a
// tuplet: every timed symbol in it must be.
func (c *column) finish(t *score.Tune) {
	timed, inBeam, inTuplet := 0, 0, 0
	for i := c.first; ; i = t.At(i).TNext {
		s := t.At(i)
		if s.Timed() {
			timed++
			if s.Has(score.FlagInBeam) {
				inBeam++
			}
			if s.Has(score.FlagInTuplet) {
				inTuplet++
			}
		}
		if i == c.last {
			break
		}
	}
	c.beam = timed > 0 && inBeam == timed
	c.tuplet = timed > 0 && inTuplet == timed
}

// columnsIn splits the range first..last of the time chain (the whole
// chain when last is Nil) into columns.
func columnsIn(t *score.Tune, first, last score.Index) []column {
	var cols []column
	for i := first; i != score.Nil; i = t.At(i).TNext {
		s := t.At(i)
		if len(cols) == 0 || t.At(cols[len(cols)-1].last).Column != s.Column {
			if len(cols) > 0 {
				cols[len(cols)-1].finish(t)
			}
			cols = append(cols, newColumn(t, i))
		}
		c := &cols[len(cols)-1]
		c.last = i
		c.include(s)
		if i == last {
			break
		}
	}
	if len(cols) > 0 {
		cols[len(cols)-1].finish(t)
	}
	return cols
}

func columns(t *score.Tune) []column { return columnsIn(t, t.First, score.Nil) }

func lineColumns(t *score.Tune, ln *score.Line) []column {
	return columnsIn(t, ln.First, ln.Last)
}

// renumber gives the time chain consecutive column numbers again after
// synthetic symbols were spliced in.
func renumber(t *score.Tune) {
	n := -1
	prev := 0
	for i := t.First; i != score.Nil; i = t.At(i).TNext {
		s := t.At(i)
		if n < 0 || s.Column != prev {
			n++
			prev = s.Column
		}
		s.Column = n
	}
}

// split turns line heads into inclusive time-chain ranges.
func split(t *score.Tune, heads []score.Index) []score.Line {
	lines := make([]score.Line, len(heads))
	for k, h := range heads {
		lines[k] = score.Line{Number: k, First: h, Last: t.Last}
		if k > 0 {
			lines[k-1].Last = t.At(h).TPrev
		}
	}
	return lines
}

// ===== Fitting =====

// fitter accumulates the glue of a line column by column. pos holds the
// column positions at hard shrink, relative to the line start.
type fitter struct {
	e    *Engine
	lead float64

	pos    []float64
	last   []int // per staff: last column with extents, -1 if none
	lastWr []float64
	time   int

	glue Glue
}

// newFitter starts a line at c. lead reserves room before the first column.
func (e *Engine) newFitter(t *score.Tune, c *column, lead float64) *fitter {
	n := len(t.Staves)
	f := &fitter{e: e, lead: lead, last: make([]int, n), lastWr: make([]float64, n), time: c.time}
	wl := 0.0
	for st := range c.wl {
		f.last[st] = -1
		if c.wl[st] >= 0 {
			wl = max(wl, c.wl[st])
		}
	}
	first := lead + wl
	c.shrink, c.space, c.stretch = first, first, first
	f.glue.Rigid(first)
	f.pos = append(f.pos, first)
	f.mark(c, 0)
	return f
}

func (f *fitter) mark(c *column, k int) {
	for st := range c.wl {
		if c.wl[st] >= 0 {
			f.last[st] = k
			f.lastWr[st] = c.wr[st]
		}
	}
}

// add appends a column and sets its advances.
func (f *fitter) add(c *column) {
	cfg := f.e.cfg
	k := len(f.pos)
	prev := f.pos[k-1]

	shrink := 0.0
	for st := range c.wl {
		if c.wl[st] < 0 {
			continue
		}
		if j := f.last[st]; j >= 0 {
			shrink = max(shrink, f.pos[j]+f.lastWr[st]+c.wl[st]+cfg.Spacing.MinGap-prev)
		} else {
			shrink = max(shrink, f.lead+c.wl[st]-prev)
		}
	}

	space := shrink
	if dt := c.time - f.time; dt > 0 {
		natural := NoteSpace(dt, cfg.Spacing)
		if c.beam {
			natural *= cfg.Spacing.BeamCompress
		}
		if c.tuplet {
			natural *= cfg.Spacing.TupletCompress
		}
		space = max(shrink, natural)
	}

	c.shrink, c.space, c.stretch = shrink, space, space*(1+cfg.MaxStretch)
	f.glue.Add(c.shrink, c.space, c.stretch)
	f.pos = append(f.pos, prev+shrink)
	f.time = c.time
	f.mark(c, k)
}

// trailing is the room the last glyphs need after the last column.
func (f *fitter) trailing() float64 {
	end := f.pos[len(f.pos)-1]
	w := 0.0
	for st, j := range f.last {
		if j >= 0 {
			w = max(w, f.pos[j]+f.lastWr[st]-end)
		}
	}
	return w
}

// minWidth is the narrowest the line built so far can be set.
func (f *fitter) minWidth() float64 {
	return f.glue.MinWidth(f.e.cfg.MaxShrink) + f.trailing()
}

// ===== Cutting =====

// cut packs columns into lines and returns the index of the first column
// of each line.
func (e *Engine) cut(t *score.Tune, cols []column) []int {
	sigs := newSignatures(t)
	starts := []int{0}
	a := 0
	f := e.newFitter(t, &cols[0], 0)

	for k := 1; k < len(cols); k++ {
		forced := cols[k-1].eol || t.SystemAt(cols[k-1].time) != t.SystemAt(cols[k].time)
		if !forced {
			f.add(&cols[k])
			if f.minWidth() <= e.cfg.Width {
				continue
			}
			k = cutBack(cols, a, k) + 1
		}
		a = k
		starts = append(starts, a)
		sigs.advance(cols, a)
		f = e.newFitter(t, &cols[a], sigs.lead(e))
	}
	return starts
}

// cutBack returns the last column of a line running from column a that
// overflows at column k.
func cutBack(cols []column, a, k int) int {
	for j := k - 1; j > a; j-- {
		if cols[j].bar {
			return j
		}
	}
	for j := k - 1; j > a; j-- {
		if cols[j].key {
			return j - 1
		}
	}
	return k - 1
}

// ===== Line-start signatures =====

// signatures tracks the clef and key in effect on every staff while
// walking the columns forwards.
type signatures struct {
	t    *score.Tune
	at   score.Index
	clef []score.Clef
	key  []score.Key
}

func newSignatures(t *score.Tune) *signatures {
	sg := &signatures{t: t, at: t.First, clef: make([]score.Clef, len(t.Staves)), key: make([]score.Key, len(t.Staves))}
	for k, st := range t.Staves {
		sg.clef[k] = st.Clef
	}
	for k := len(t.Voices) - 1; k >= 0; k-- {
		v := t.Voices[k]
		if v.Staff < len(sg.key) {
			sg.key[v.Staff] = v.Key
		}
	}
	return sg
}

// advance consumes every symbol before column a.
func (sg *signatures) advance(cols []column, a int) {
	if a >= len(cols) {
		return
	}
	stop := cols[a].first
	for ; sg.at != score.Nil && sg.at != stop; sg.at = sg.t.At(sg.at).TNext {
		s := sg.t.At(sg.at)
		if s.Staff >= len(sg.clef) {
			continue
		}
		switch s.Kind {
		case score.KindClef:
			sg.clef[s.Staff] = s.Clef
		case score.KindKeySig:
			sg.key[s.Staff] = s.Key
		}
	}
}

// lead is the room the synthetic signatures take at a line start.
func (sg *signatures) lead(e *Engine) float64 {
	w := 0.0
	gap := e.cfg.Spacing.MinGap
	for st := range sg.clef {
		c := e.metrics.Width(glyph.ClefFor(sg.clef[st])) + gap
		if k := keyWidth(sg.key[st], e.metrics); k > 0 {
			c += k + gap
		}
		w = max(w, c)
	}
	return w
}

// insertSignatures splices a synthetic clef, and a key signature when the
// key has accidentals, in front of every line but the first. They go into
// the chain of the first voice of each staff and take the time of the line
// start. It returns the first time-chain symbol of every line.
func (e *Engine) insertSignatures(t *score.Tune, cols []column, starts []int) []score.Index {
	heads := make([]score.Index, len(starts))
	heads[0] = cols[0].first
	sigs := newSignatures(t)

	for n := 1; n < len(starts); n++ {
		a := starts[n]
		end := len(cols)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		sigs.advance(cols, a)
		head := cols[a].first
		heads[n] = head
		time := cols[a].time

		var clefs, keys []score.Index
		for st := range t.Staves {
			v := firstVoice(t, st)
			if v == nil {
				continue
			}
			ref := firstOf(t, v, cols[a].first, cols[end-1].last)
			if ref == score.Nil {
				continue
			}
			hasClef, hasKey := explicitAt(t, cols[a:end], st, time)
			if !hasClef {
				sym := score.ClefChange(sigs.clef[st])
				sym.Set(score.FlagSynthetic)
				clefs = append(clefs, e.splice(t, ref, sym, st, time, clefColumn))
			}
			if !hasKey && sigs.key[st].Count() > 0 {
				sym := score.KeyChange(sigs.key[st])
				sym.Set(score.FlagSynthetic)
				keys = append(keys, e.splice(t, ref, sym, st, time, keyColumn))
			}
		}

		inserted := append(clefs, keys...)
		for _, i := range inserted {
			t.InsertTimeBefore(head, i)
		}
		if len(inserted) > 0 {
			heads[n] = inserted[0]
		}
	}
	return heads
}

func (e *Engine) splice(t *score.Tune, ref score.Index, sym score.Symbol, staff, time, column int) score.Index {
	i := t.InsertBefore(ref, sym)
	s := t.At(i)
	s.Staff, s.Time, s.Column = staff, time, column
	Measure(s, e.metrics, e.cfg)
	return i
}

// firstVoice returns the first voice declared on a staff.
func firstVoice(t *score.Tune, staff int) *score.Voice {
	for _, v := range t.Voices {
		if v.Staff == staff && !v.Floating {
			return v
		}
	}
	for _, v := range t.Voices {
		if v.Staff == staff {
			return v
		}
	}
	return nil
}

// firstOf returns the first symbol of v inside the time-chain range, Nil if
// the voice is silent there.
func firstOf(t *score.Tune, v *score.Voice, first, last score.Index) score.Index {
	for i := first; i != score.Nil; i = t.At(i).TNext {
		if t.At(i).Voice == v.Index {
			return i
		}
		if i == last {
			break
		}
	}
	return score.Nil
}

// explicitAt reports whether the line already opens with a clef or key
// signature of its own on the staff.
func explicitAt(t *score.Tune, cols []column, staff, time int) (clef, key bool) {
	for _, c := range cols {
		if c.time != time {
			break
		}
		for i := c.first; ; i = t.At(i).TNext {
			s := t.At(i)
			if s.Staff == staff {
				clef = clef || s.Kind == score.KindClef
				key = key || s.Kind == score.KindKeySig
			}
			if i == c.last {
				break
			}
		}
	}
	return clef, key
}
