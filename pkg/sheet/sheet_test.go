package sheet

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/engrave/beam"
	"github.com/matzehuels/engraver/pkg/engrave/merge"
	"github.com/matzehuels/engraver/pkg/engrave/pitch"
	"github.com/matzehuels/engraver/pkg/engrave/slur"
	"github.com/matzehuels/engraver/pkg/engrave/spacing"
	"github.com/matzehuels/engraver/pkg/engrave/stack"
	"github.com/matzehuels/engraver/pkg/engrave/stem"
	"github.com/matzehuels/engraver/pkg/engrave/voices"
	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

// duet is two bars on two staves: a slurred beamed pair and a tied half on
// top, quarters below.
func duet() *score.Tune {
	t := score.NewTune("duet")
	up := t.AddVoice("S", 0)
	lo := t.AddVoice("B", 1)
	t.Staves[1].Clef = score.Bass()
	lo.Clef = score.Bass()

	t.Append(up, score.ClefChange(score.Treble()))
	a := score.Note(score.Eighth, 4)
	a.Heads[0].SlurStart = 1
	b := score.Note(score.Eighth, 6)
	b.Heads[0].SlurEnd = 1
	for _, s := range score.Beamed(a, b) {
		t.Append(up, s)
	}
	t.Append(up, score.Note(score.Quarter, 5))
	tied := score.Note(score.Half, 3)
	tied.Heads[0].TieStart = true
	t.Append(up, tied)
	t.Append(up, score.Bar(score.BarSingle))
	end := score.Note(score.Half, 3)
	end.Heads[0].TieEnd = true
	t.Append(up, end)
	t.Append(up, score.Rest(score.Half))
	t.Append(up, score.Bar(score.BarThinThick))

	t.Append(lo, score.ClefChange(score.Bass()))
	for range 4 {
		t.Append(lo, score.Note(score.Quarter, -7))
	}
	t.Append(lo, score.Bar(score.BarSingle))
	t.Append(lo, score.MeasureRest(score.Whole))
	t.Append(lo, score.Bar(score.BarThinThick))
	return t
}

func layout(t *testing.T, tune *score.Tune, cfg config.Layout) Input {
	t.Helper()
	diag := &errs.Diagnostics{}
	pitch.Resolve(tune, diag)
	voices.Assign(tune, cfg, diag)
	if err := merge.Merge(tune, diag); err != nil {
		t.Fatal(err)
	}
	groups := stem.Direct(tune)
	lines := spacing.New(cfg, nil, diag).Layout(tune)
	beams := beam.Place(tune, lines, groups, cfg, diag)

	in := Input{Tune: tune, Width: cfg.Width, Lines: lines, Beams: beams}
	arcs := slur.NewResolver(tune, cfg, diag)
	for k := range lines {
		a := arcs.Line(&lines[k])
		in.Arcs = append(in.Arcs, a)
		in.Stacks = append(in.Stacks, stack.Place(tune, &lines[k], a, cfg))
	}
	in.Diagnostics = diag.Items()
	return in
}

func TestBuild(t *testing.T) {
	cfg := config.Default()
	in := layout(t, duet(), cfg)
	sh := Build(in)

	if sh.Title != "duet" || sh.Width != cfg.Width {
		t.Errorf("title %q width %v", sh.Title, sh.Width)
	}
	if len(sh.Lines) != 1 {
		t.Fatalf("%d lines, want 1", len(sh.Lines))
	}
	ln := sh.Lines[0]
	if sh.Height != ln.Height || ln.Height <= 0 {
		t.Errorf("sheet height %v, line height %v", sh.Height, ln.Height)
	}
	if len(ln.Staves) != 2 || ln.Staves[1].Y <= ln.Staves[0].Y {
		t.Fatalf("staves = %+v", ln.Staves)
	}

	var notes, rests, stems int
	for _, s := range ln.Symbols {
		switch s.Kind {
		case "note":
			notes++
			if len(s.Heads) == 0 || s.Heads[0].Glyph == "" {
				t.Errorf("note at %v without head glyph", s.X)
			}
			if s.Stem != nil {
				stems++
			}
		case "rest":
			rests++
			if s.Glyph == "" {
				t.Errorf("rest at %v without glyph", s.X)
			}
		}
		if s.X < 0 || s.X > sh.Width+1e-6 {
			t.Errorf("%s at x %v outside the line", s.Kind, s.X)
		}
	}
	if notes != 9 || rests != 2 || stems != 9 {
		t.Errorf("notes %d rests %d stems %d, want 9, 2, 9", notes, rests, stems)
	}

	if len(ln.Beams) != 1 || len(ln.Beams[0].Polygons) == 0 {
		t.Errorf("beams = %+v", ln.Beams)
	}
	kinds := map[string]int{}
	for _, a := range ln.Arcs {
		kinds[a.Kind]++
	}
	if kinds["slur"] != 1 || kinds["tie"] != 1 {
		t.Errorf("arcs by kind = %v, want one slur and one tie", kinds)
	}
}

func TestPageY(t *testing.T) {
	ln := Line{Y: 100, Staves: []Staff{{Index: 0, Y: 20}, {Index: 1, Y: -1, Hidden: true}}}
	tests := []struct {
		name  string
		staff int
		y     float64
		want  float64
	}{
		{"bottom line", 0, 0, 100 + 20 + score.StaffHeight},
		{"top line", 0, score.StaffHeight, 120},
		{"above the staff", 0, 30, 114},
		{"hidden staff", 1, 0, -1},
		{"unknown staff", 5, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ln.PageY(tt.staff, tt.y); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PageY(%d, %v) = %v, want %v", tt.staff, tt.y, got, tt.want)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	sh := Build(layout(t, duet(), config.Default()))
	data, err := Marshal(sh)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(sh, back) {
		t.Error("sheet changed through JSON")
	}

	again, _ := Marshal(Build(layout(t, duet(), config.Default())))
	if string(again) != string(data) {
		t.Error("laying out the same tune twice gave different bytes")
	}
}

func TestUnmarshalRejectsMisnumberedLines(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"lines": [{"number": 3}]}`)); err == nil {
		t.Error("expected error")
	}
	if _, err := Unmarshal([]byte(`{"lines": `)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestFile(t *testing.T) {
	sh := Build(layout(t, duet(), config.Default()))
	path := filepath.Join(t.TempDir(), "sheet.json")
	if err := WriteFile(sh, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if back.Title != sh.Title || len(back.Lines) != len(sh.Lines) {
		t.Error("file round trip lost data")
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
