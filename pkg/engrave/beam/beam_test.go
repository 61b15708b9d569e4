package beam

import (
	"math"
	"testing"

	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/engrave/merge"
	"github.com/matzehuels/engraver/pkg/engrave/pitch"
	"github.com/matzehuels/engraver/pkg/engrave/spacing"
	"github.com/matzehuels/engraver/pkg/engrave/stem"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

const eps = 1e-9

type laidOut struct {
	tune   *score.Tune
	lines  []score.Line
	groups []score.BeamGroup
}

func layout(t *testing.T, tune *score.Tune, cfg config.Layout) laidOut {
	t.Helper()
	pitch.Resolve(tune, nil)
	if err := merge.Merge(tune, nil); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	groups := stem.Direct(tune)
	lines := spacing.New(cfg, nil, nil).Layout(tune)
	return laidOut{tune: tune, lines: lines, groups: groups}
}

// beamed builds one voice holding a single beam group of eighths.
func beamed(pitches ...int) *score.Tune {
	tune := score.NewTune("beam")
	v := tune.AddVoice("V1", 0)
	notes := make([]score.Symbol, len(pitches))
	for k, p := range pitches {
		notes[k] = score.Note(score.Eighth, p)
	}
	for _, s := range score.Beamed(notes...) {
		tune.Append(v, s)
	}
	return tune
}

func TestTwoNoteSlope(t *testing.T) {
	for _, maxSlope := range []float64{0.1, 0.2, 1.0} {
		cfg := config.Default()
		cfg.Beam.MaxSlope = maxSlope
		cfg.Beam.FlatThreshold = 0.01

		// Treble pitches 2 and 5: offsets 0 and 3, both stems up.
		lo := layout(t, beamed(2, 5), cfg)
		beams := Place(lo.tune, lo.lines, lo.groups, cfg, nil)
		if len(beams) != 1 {
			t.Fatalf("maxSlope %v: got %d beams, want 1", maxSlope, len(beams))
		}
		b := beams[0]
		if b.Stem != score.DirUp {
			t.Fatalf("maxSlope %v: stem %v, want up", maxSlope, b.Stem)
		}

		n1, n2 := lo.tune.At(b.Notes[0]), lo.tune.At(b.Notes[1])
		raw := (3 * score.StepHeight) / (StemX(n2) - StemX(n1))
		want := min(raw, maxSlope)
		if math.Abs(b.Slope-want) > 1e-6 {
			t.Errorf("maxSlope %v: slope = %v, want %v (raw %v)", maxSlope, b.Slope, want, raw)
		}
	}
}

func TestSlopeBoundedAndStemsLongEnough(t *testing.T) {
	patterns := [][]int{
		{2, 4, 6, 8},
		{12, 2},
		{2, 12, 2, 12},
		{6, 6, 6},
		{-4, 9, 0},
		{9, 10, 11, 12, 13, 14},
	}
	cfg := config.Default()
	for _, p := range patterns {
		lo := layout(t, beamed(p...), cfg)
		beams := Place(lo.tune, lo.lines, lo.groups, cfg, nil)
		if len(beams) != 1 {
			t.Fatalf("%v: got %d beams, want 1", p, len(beams))
		}
		b := beams[0]
		if math.Abs(b.Slope) > cfg.Beam.MaxSlope+eps {
			t.Errorf("%v: |slope| %v exceeds %v", p, b.Slope, cfg.Beam.MaxSlope)
		}
		dir := float64(b.Stem)
		for _, i := range b.Notes {
			s := lo.tune.At(i)
			length := dir * (s.StemY - near(s, dir))
			if length < cfg.Beam.StemMin(s.NFlags)-1e-6 {
				t.Errorf("%v: stem of note %d is %v, shorter than %v", p, i, length, cfg.Beam.StemMin(s.NFlags))
			}
		}
		if len(b.Polygons) != 1 {
			t.Errorf("%v: got %d polygons for eighths, want 1", p, len(b.Polygons))
		}
	}
}

func TestFlatBeamSnapsToStaff(t *testing.T) {
	cfg := config.Default()
	// Two notes on the bottom line: the default tips end at 20, inside the
	// staff, and snap up to the next line or space.
	lo := layout(t, beamed(2, 2), cfg)
	b := Place(lo.tune, lo.lines, lo.groups, cfg, nil)[0]
	if b.Slope != 0 {
		t.Fatalf("slope = %v, want 0", b.Slope)
	}
	if b.Offset != 21 {
		t.Errorf("offset = %v, want 21", b.Offset)
	}
}

func TestSecondaryAndPartialBeams(t *testing.T) {
	tune := score.NewTune("beam")
	v := tune.AddVoice("V1", 0)
	notes := score.Beamed(
		score.Note(score.Eighth+score.Sixteenth, 4),
		score.Note(score.Sixteenth, 4),
		score.Note(score.Sixteenth, 4),
		score.Note(score.Sixteenth, 4),
	)
	for _, s := range notes {
		tune.Append(v, s)
	}
	cfg := config.Default()
	lo := layout(t, tune, cfg)
	b := Place(lo.tune, lo.lines, lo.groups, cfg, nil)[0]
	// Primary across all four, secondary across the three sixteenths.
	if len(b.Polygons) != 2 {
		t.Fatalf("got %d polygons, want 2", len(b.Polygons))
	}
	sec := b.Polygons[1]
	if sec[0].X != StemX(lo.tune.At(b.Notes[1])) {
		t.Errorf("secondary beam starts at %v, want the second note", sec[0].X)
	}
}

func TestCrossStaffGroupRejected(t *testing.T) {
	cfg := config.Default()
	tune := beamed(2, 4, 6)
	tune.EnsureStaves(2)
	lo := layout(t, tune, cfg)
	lo.tune.At(lo.groups[0].Notes[1]).Staff = 1

	diag := &errs.Diagnostics{}
	beams := Place(lo.tune, lo.lines, lo.groups, cfg, diag)
	if len(beams) != 0 {
		t.Errorf("got %d beams, want 0", len(beams))
	}
	if !lo.groups[0].Rejected {
		t.Error("group not marked rejected")
	}
	if !diag.Has(errs.ErrCodeDegenerate) {
		t.Error("no GEOMETRY_DEGENERATE diagnostic")
	}
	for _, i := range lo.groups[0].Notes {
		s := lo.tune.At(i)
		if s.Has(score.FlagBeamed) {
			t.Errorf("note %d still flagged beamed", i)
		}
		if s.StemY == 0 {
			t.Errorf("note %d got no stem", i)
		}
	}
}

func TestGroupAcrossLineCut(t *testing.T) {
	cfg := config.Default()
	cfg.Width = 150
	pitches := make([]int, 16)
	for k := range pitches {
		pitches[k] = 4
	}
	lo := layout(t, beamed(pitches...), cfg)
	if len(lo.lines) < 2 {
		t.Fatalf("got %d lines, want the group split", len(lo.lines))
	}

	beams := Place(lo.tune, lo.lines, lo.groups, cfg, nil)
	if len(beams) != len(lo.lines) {
		t.Fatalf("got %d beam pieces, want %d", len(beams), len(lo.lines))
	}
	for k, b := range beams {
		if len(b.Notes) < 2 {
			t.Errorf("piece %d has %d notes", k, len(b.Notes))
		}
		first, last := lo.tune.At(b.Notes[0]), lo.tune.At(b.Notes[len(b.Notes)-1])
		if k > 0 && !first.Has(score.FlagGhost) {
			t.Errorf("piece %d does not start with a ghost", k)
		}
		if k < len(beams)-1 {
			if !last.Has(score.FlagGhost) {
				t.Errorf("piece %d does not end with a ghost", k)
			}
			if lo.lines[k].Last != b.Notes[len(b.Notes)-1] {
				t.Errorf("line %d does not end with its ghost", k)
			}
		}
	}
	if err := lo.tune.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestStemsOfUnbeamedNotes(t *testing.T) {
	tests := []struct {
		name    string
		pitches []int
		want    float64
	}{
		{"up from the bottom line", []int{2}, 20},
		{"down from the top line", []int{10}, 4},
		{"ledger note reaches the middle line", []int{-2}, 12},
		// Heads at 0 and 30: the stem must clear the lowest head.
		{"wide chord down past the lowest head", []int{2, 12}, -14},
	}
	cfg := config.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tune := score.NewTune("stems")
			v := tune.AddVoice("V1", 0)
			i := tune.Append(v, score.Note(score.Quarter, tt.pitches...))
			lo := layout(t, tune, cfg)
			Place(lo.tune, lo.lines, lo.groups, cfg, nil)
			if got := lo.tune.At(i).StemY; math.Abs(got-tt.want) > eps {
				t.Errorf("StemY = %v, want %v", got, tt.want)
			}
		})
	}
}
