package spacing

import (
	"math"
	"testing"

	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/engrave/merge"
	"github.com/matzehuels/engraver/pkg/engrave/pitch"
	"github.com/matzehuels/engraver/pkg/engrave/stem"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

const eps = 1e-6

func prepare(t *testing.T, tune *score.Tune) {
	t.Helper()
	pitch.Resolve(tune, nil)
	if err := merge.Merge(tune, nil); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	stem.Direct(tune)
}

// measures builds a single voice of n 4/4 measures of quarter notes.
func measures(n int) *score.Tune {
	tune := score.NewTune("measures")
	v := tune.AddVoice("V1", 0)
	v.Meter = score.Meter{Num: 4, Den: 4}
	for range n {
		for range 4 {
			tune.Append(v, score.Note(score.Quarter, 6))
		}
		tune.Append(v, score.Bar(score.BarSingle))
	}
	return tune
}

func notesOf(tune *score.Tune) []*score.Symbol {
	var out []*score.Symbol
	for _, i := range tune.TimeChain() {
		if s := tune.At(i); s.IsNote() {
			out = append(out, s)
		}
	}
	return out
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name      string
		glue      Glue
		width     float64
		alfa      float64
		beta      float64
		overfull  bool
		underfull bool
	}{
		{"natural", Glue{50, 100, 200}, 100, 0, 0, false, false},
		{"shrink", Glue{50, 100, 200}, 80, 0.4, 0, false, false},
		{"shrink at limit", Glue{50, 100, 200}, 67.5, 0.65, 0, false, false},
		{"overfull", Glue{50, 100, 200}, 60, 0, 0, true, false},
		{"stretch", Glue{50, 100, 200}, 150, 0, 0.5, false, false},
		{"underfull", Glue{50, 100, 200}, 300, 0, 1, false, true},
		{"rigid and too wide", Glue{100, 100, 100}, 90, 0, 0, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Solve(tt.glue, tt.width, 0.65)
			if math.Abs(r.Alfa-tt.alfa) > eps || math.Abs(r.Beta-tt.beta) > eps {
				t.Errorf("Solve() = alfa %v beta %v, want %v %v", r.Alfa, r.Beta, tt.alfa, tt.beta)
			}
			if r.Overfull != tt.overfull || r.Underfull != tt.underfull {
				t.Errorf("Solve() overfull=%v underfull=%v, want %v %v", r.Overfull, r.Underfull, tt.overfull, tt.underfull)
			}
			if !r.Underfull {
				if w := r.Width(tt.glue); math.Abs(w-tt.width) > eps {
					t.Errorf("Width() = %v, want %v", w, tt.width)
				}
			}
		})
	}
}

func TestNoteSpace(t *testing.T) {
	sp := config.Default().Spacing
	if got := NoteSpace(score.Quarter, sp); math.Abs(got-sp.QuarterSpace) > eps {
		t.Errorf("NoteSpace(quarter) = %v, want %v", got, sp.QuarterSpace)
	}
	if got, want := NoteSpace(score.Half, sp), sp.QuarterSpace*sp.NoteSpacingFactor; math.Abs(got-want) > eps {
		t.Errorf("NoteSpace(half) = %v, want %v", got, want)
	}
	if NoteSpace(score.Eighth, sp) >= NoteSpace(score.Quarter, sp) {
		t.Error("eighths should be spaced tighter than quarters")
	}
	if NoteSpace(0, sp) != 0 {
		t.Error("NoteSpace(0) should be 0")
	}
}

func TestFourQuarters(t *testing.T) {
	for _, stretchLast := range []bool{false, true} {
		cfg := config.Default()
		cfg.Width = 200
		cfg.MaxShrink = 0.65
		cfg.StretchLast = stretchLast

		tune := measures(1)
		prepare(t, tune)
		lines := New(cfg, nil, nil).Layout(tune)
		if len(lines) != 1 {
			t.Fatalf("stretchLast=%v: got %d lines, want 1", stretchLast, len(lines))
		}

		notes := notesOf(tune)
		if len(notes) != 4 {
			t.Fatalf("got %d notes, want 4", len(notes))
		}
		d0 := notes[1].X - notes[0].X
		for k := 1; k < len(notes); k++ {
			d := notes[k].X - notes[k-1].X
			if d <= 0 {
				t.Errorf("stretchLast=%v: x not increasing at note %d", stretchLast, k)
			}
			if math.Abs(d-d0) > 0.01 {
				t.Errorf("stretchLast=%v: delta %d = %v, want %v", stretchLast, k, d, d0)
			}
		}
		if stretchLast && math.Abs(lines[0].Width-cfg.Width) > eps {
			t.Errorf("justified width = %v, want %v", lines[0].Width, cfg.Width)
		}
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		name      string
		width     float64
		underfull bool
	}{
		{"fits within stretch", 200, false},
		{"too loose", 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Width = tt.width
			cfg.StretchLast = false

			tune := measures(1)
			prepare(t, tune)
			diag := &errs.Diagnostics{}
			lines := New(cfg, nil, diag).Layout(tune)
			if len(lines) != 1 {
				t.Fatalf("got %d lines, want 1", len(lines))
			}
			ln := lines[0]
			if ln.Underfull != tt.underfull {
				t.Errorf("Underfull = %v, want %v", ln.Underfull, tt.underfull)
			}
			if got := diag.Has(errs.ErrCodeUnderflow); got != tt.underfull {
				t.Errorf("LAYOUT_UNDERFLOW reported = %v, want %v", got, tt.underfull)
			}
			if tt.underfull {
				if math.Abs(ln.Width-ln.Space) > eps {
					t.Errorf("loose last line width %v, want natural %v", ln.Width, ln.Space)
				}
				return
			}
			if math.Abs(ln.Width-cfg.Width) > eps {
				t.Errorf("last line width %v, want %v", ln.Width, cfg.Width)
			}
		})
	}
}

func TestLinesRespectGlueBounds(t *testing.T) {
	for _, width := range []float64{180, 260, 400} {
		cfg := config.Default()
		cfg.Width = width
		cfg.StretchLast = true

		tune := measures(9)
		prepare(t, tune)
		lines := New(cfg, nil, nil).Layout(tune)
		if len(lines) < 2 {
			t.Fatalf("width %v: got %d lines, want several", width, len(lines))
		}
		for _, ln := range lines {
			if ln.Overfull {
				t.Errorf("width %v: line %d overfull", width, ln.Number)
				continue
			}
			if ln.Width < ln.Shrink-eps {
				t.Errorf("width %v: line %d width %v below shrink %v", width, ln.Number, ln.Width, ln.Shrink)
			}
			if ln.Width > ln.Space*(1+cfg.MaxStretch)+eps {
				t.Errorf("width %v: line %d width %v above stretch %v", width, ln.Number, ln.Width, ln.Space*(1+cfg.MaxStretch))
			}
		}
	}
}

func TestLineCutsAtBars(t *testing.T) {
	cfg := config.Default()
	cfg.Width = 200

	tune := measures(6)
	prepare(t, tune)
	lines := New(cfg, nil, nil).Layout(tune)
	if len(lines) < 2 {
		t.Fatalf("got %d lines, want several", len(lines))
	}

	for k, ln := range lines {
		if k < len(lines)-1 && tune.At(ln.Last).Kind != score.KindBar {
			t.Errorf("line %d ends with %v, want a bar", k, tune.At(ln.Last).Kind)
		}
		if k > 0 {
			head := tune.At(ln.First)
			if head.Kind != score.KindClef || !head.Has(score.FlagSynthetic) {
				t.Errorf("line %d starts with %v, want a synthetic clef", k, head.Kind)
			}
		}
	}

	if err := tune.Validate(); err != nil {
		t.Errorf("Validate() after layout: %v", err)
	}
	prevTime, prevCol, prevLine := -1, -1, 0
	for _, i := range tune.TimeChain() {
		s := tune.At(i)
		if s.Time < prevTime || s.Column < prevCol || s.Line < prevLine {
			t.Fatalf("time chain out of order at %d: time %d column %d line %d", i, s.Time, s.Column, s.Line)
		}
		prevTime, prevCol, prevLine = s.Time, s.Column, s.Line
	}
}

func TestExplicitLineBreak(t *testing.T) {
	tune := measures(2)
	v := tune.Voices[0]
	// Mark the first bar.
	for i := v.First; i != score.Nil; i = tune.At(i).Next {
		if s := tune.At(i); s.Kind == score.KindBar {
			s.Set(score.FlagEOL)
			break
		}
	}
	prepare(t, tune)
	lines := New(config.Default(), nil, nil).Layout(tune)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
}

func TestPlaceIsIdempotent(t *testing.T) {
	cfg := config.Default()
	cfg.Width = 250

	tune := measures(5)
	prepare(t, tune)
	e := New(cfg, nil, nil)
	lines := e.Layout(tune)

	before := map[score.Index]float64{}
	for _, i := range tune.TimeChain() {
		before[i] = tune.At(i).X
	}
	e.Place(tune, lines)
	for _, i := range tune.TimeChain() {
		if got := tune.At(i).X; got != before[i] {
			t.Errorf("symbol %d moved from %v to %v", i, before[i], got)
		}
	}
}

func TestCenterMeasureRests(t *testing.T) {
	for _, gap := range []float64{0, 40, 100} {
		tune := score.NewTune("rest")
		v := tune.AddVoice("V1", 0)
		left := tune.Append(v, score.Bar(score.BarSingle))
		rest := tune.Append(v, score.MeasureRest(score.Whole))
		right := tune.Append(v, score.Bar(score.BarSingle))
		if err := merge.Merge(tune, nil); err != nil {
			t.Fatal(err)
		}

		tune.At(left).X = 50
		tune.At(rest).X = 0
		tune.At(right).X = 50 + gap
		ln := score.Line{First: tune.First, Last: tune.Last, Width: 300}
		CenterMeasureRests(tune, &ln)

		if got, want := tune.At(rest).X, 50+gap/2; math.Abs(got-want) > eps {
			t.Errorf("gap %v: rest x = %v, want %v", gap, got, want)
		}
	}
}

func TestMeasureRestCenteredByLayout(t *testing.T) {
	tune := score.NewTune("rest")
	v := tune.AddVoice("V1", 0)
	tune.Append(v, score.Note(score.Whole, 6))
	left := tune.Append(v, score.Bar(score.BarSingle))
	rest := tune.Append(v, score.MeasureRest(score.Whole))
	right := tune.Append(v, score.Bar(score.BarSingle))
	prepare(t, tune)
	New(config.Default(), nil, nil).Layout(tune)

	want := (tune.At(left).X + tune.At(right).X) / 2
	if got := tune.At(rest).X; math.Abs(got-want) > eps {
		t.Errorf("rest x = %v, want %v", got, want)
	}
}

func TestOverfullLineCompletes(t *testing.T) {
	cfg := config.Default()
	cfg.Width = 60

	tune := score.NewTune("overfull")
	v := tune.AddVoice("V1", 0)
	i := tune.Append(v, score.Note(score.Quarter, 6))
	tune.At(i).Lyrics = []string{"supercalifragilistic"}
	prepare(t, tune)

	diag := &errs.Diagnostics{}
	lines := New(cfg, nil, diag).Layout(tune)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if !lines[0].Overfull {
		t.Error("line not marked overfull")
	}
	if !diag.Has(errs.ErrCodeOverflow) {
		t.Error("no LAYOUT_OVERFLOW diagnostic")
	}
	if math.Abs(lines[0].Width-cfg.Width) > eps {
		t.Errorf("overfull width = %v, want exactly %v", lines[0].Width, cfg.Width)
	}
}

func TestBeamCompression(t *testing.T) {
	build := func(beamed bool) *score.Tune {
		tune := score.NewTune("beam")
		v := tune.AddVoice("V1", 0)
		notes := []score.Symbol{score.Note(score.Eighth, 6), score.Note(score.Eighth, 6)}
		if beamed {
			notes = score.Beamed(notes...)
		}
		for _, s := range notes {
			tune.Append(v, s)
		}
		tune.Append(v, score.Note(score.Quarter, 6))
		return tune
	}

	gap := func(tune *score.Tune) float64 {
		prepare(t, tune)
		New(config.Default(), nil, nil).Layout(tune)
		n := notesOf(tune)
		return n[1].X - n[0].X
	}
	if plain, beamed := gap(build(false)), gap(build(true)); beamed >= plain {
		t.Errorf("beamed gap %v should be tighter than unbeamed %v", beamed, plain)
	}
}
