package merge

import (
	"testing"

	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

// twoVoices builds a two-voice tune with a key change and grace notes so
// that every sequence class shows up at some instant.
func twoVoices() *score.Tune {
	t := score.NewTune("t")
	a := t.AddVoice("A", 0)
	b := t.AddVoice("B", 1)

	t.Append(a, score.ClefChange(score.Treble()))
	t.Append(a, score.Note(score.Quarter, 4))
	t.Append(a, score.Note(score.Quarter, 5))
	t.Append(a, score.Bar(score.BarSingle))
	t.Append(a, score.KeyChange(score.Key{Sf: 2}))
	t.Append(a, score.Note(score.Half, 4))

	t.Append(b, score.ClefChange(score.Bass()))
	t.Append(b, score.Note(score.Half, -7))
	t.Append(b, score.Bar(score.BarSingle))
	t.Append(b, score.Graces(score.GraceNote{Heads: []score.Head{{Pitch: -5}}, Dur: score.Eighth}))
	t.Append(b, score.Note(score.Quarter, -6))
	t.Append(b, score.Note(score.Quarter, -5))
	return t
}

func TestMergeOrder(t *testing.T) {
	tune := twoVoices()
	if err := Merge(tune, nil); err != nil {
		t.Fatal(err)
	}

	chain := tune.TimeChain()
	if len(chain) != tune.Len() {
		t.Fatalf("time chain has %d symbols, want %d", len(chain), tune.Len())
	}

	for k := 1; k < len(chain); k++ {
		p, s := tune.At(chain[k-1]), tune.At(chain[k])
		if s.Time < p.Time {
			t.Fatalf("time goes backwards at %d: %d after %d", k, s.Time, p.Time)
		}
		if s.Time == p.Time && (s.Seq < p.Seq || (s.Seq == p.Seq && s.Rank < p.Rank)) {
			t.Errorf("lattice violated at %d: %v after %v", k, s.Kind, p.Kind)
		}
		if s.Column < p.Column || s.Column > p.Column+1 {
			t.Errorf("column jumps from %d to %d", p.Column, s.Column)
		}
		sameKey := s.Time == p.Time && s.Seq == p.Seq && s.Rank == p.Rank
		if sameKey != (s.Column == p.Column) {
			t.Errorf("column sharing wrong at %d (%v, %v)", k, p.Kind, s.Kind)
		}
	}

	// Contiguity: once time moves on it never returns.
	seen := map[int]bool{}
	last := -1
	for _, i := range chain {
		tm := tune.At(i).Time
		if tm != last {
			if seen[tm] {
				t.Errorf("time %d is not contiguous", tm)
			}
			seen[tm] = true
			last = tm
		}
	}
}

func TestMergeDeclarationOrderBreaksTies(t *testing.T) {
	tune := twoVoices()
	if err := Merge(tune, nil); err != nil {
		t.Fatal(err)
	}
	// The first two notes at time 0 come from voice A, then voice B.
	var voices []int
	for _, i := range tune.TimeChain() {
		s := tune.At(i)
		if s.Time == 0 && s.Kind == score.KindNote {
			voices = append(voices, s.Voice)
		}
	}
	if len(voices) != 2 || voices[0] != 0 || voices[1] != 1 {
		t.Errorf("voices at time 0 = %v, want [0 1]", voices)
	}
}

func TestMergeIsRepeatable(t *testing.T) {
	tune := twoVoices()
	if err := Merge(tune, nil); err != nil {
		t.Fatal(err)
	}
	first := tune.TimeChain()
	if err := Merge(tune, nil); err != nil {
		t.Fatal(err)
	}
	second := tune.TimeChain()
	for k := range first {
		if first[k] != second[k] {
			t.Fatalf("second merge differs at %d", k)
		}
	}
}

func TestBarCheck(t *testing.T) {
	errs.ResetSeverity()
	defer errs.ResetSeverity()

	tune := score.NewTune("t")
	a := tune.AddVoice("A", 0)
	b := tune.AddVoice("B", 1)
	a.Meter = score.Meter{Num: 4, Den: 4}
	b.Meter = score.Meter{Num: 4, Den: 4}

	for range 3 {
		tune.Append(a, score.Note(score.Whole, 4))
		tune.Append(a, score.Bar(score.BarSingle))
	}
	// B's first measure is two measures too long.
	tune.Append(b, score.Note(score.Whole, 0))
	tune.Append(b, score.Note(score.Whole, 0))
	tune.Append(b, score.Note(score.Whole, 0))
	bar1 := tune.Append(b, score.Bar(score.BarSingle))
	n := tune.Append(b, score.Note(score.Whole, 0))
	bar2 := tune.Append(b, score.Bar(score.BarSingle))

	var diag errs.Diagnostics
	if err := Merge(tune, &diag); err != nil {
		t.Fatal(err)
	}

	if diag.Count(errs.ErrCodeStructural) != 1 {
		t.Fatalf("structural warnings = %d, want 1", diag.Count(errs.ErrCodeStructural))
	}
	if got := tune.At(bar1).Time; got != 2*score.Whole {
		t.Errorf("first bar of B at %d, want %d", got, 2*score.Whole)
	}
	if got := tune.At(n).Time; got != 2*score.Whole {
		t.Errorf("note after the bar at %d, want %d", got, 2*score.Whole)
	}
	if got := tune.At(bar2).Time; got != 3*score.Whole {
		t.Errorf("second bar of B at %d, want %d", got, 3*score.Whole)
	}
	if err := tune.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestBarCheckToleratesSmallDrift(t *testing.T) {
	tune := score.NewTune("t")
	a := tune.AddVoice("A", 0)
	b := tune.AddVoice("B", 1)
	tune.Append(a, score.Note(score.Whole, 4))
	tune.Append(a, score.Bar(score.BarSingle))
	tune.Append(b, score.Note(score.Half, 4))
	bar := tune.Append(b, score.Bar(score.BarSingle))

	var diag errs.Diagnostics
	BarCheck(tune, &diag)
	if len(diag.Items()) != 0 || tune.At(bar).Time != score.Half {
		t.Error("drift within a measure should be left alone")
	}
}
