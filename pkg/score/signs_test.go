package score

import "testing"

func TestClefBottomPitch(t *testing.T) {
	tests := []struct {
		name string
		clef Clef
		want int
	}{
		{"treble", Treble(), 2},
		{"bass", Bass(), -10},
		{"alto", Alto(), -4},
		{"tenor", Tenor(), -6},
		{"treble-8", Clef{Type: ClefG, Line: 2, Octave: -1}, -5},
		{"soprano", Clef{Type: ClefC, Line: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.clef.BottomPitch(); got != tt.want {
				t.Errorf("BottomPitch() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseClef(t *testing.T) {
	tests := []struct {
		in     string
		want   Clef
		wantOK bool
	}{
		{"treble", Treble(), true},
		{"bass", Bass(), true},
		{"C1", Clef{Type: ClefC, Line: 1}, true},
		{"treble-8", Clef{Type: ClefG, Line: 2, Octave: -1}, true},
		{"auto", Clef{Type: ClefG, Line: 2, Auto: true}, true},
		{"X9", Clef{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseClef(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseClef(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if Bass().Name() != "bass" || (Clef{Type: ClefC, Line: 1}).Name() != "C1" {
		t.Error("unexpected clef names")
	}
}

func TestKeyAlter(t *testing.T) {
	d := Key{Sf: 2} // D major: F# C#
	if d.Alter(3) != 1 || d.Alter(0) != 1 || d.Alter(4) != 0 {
		t.Error("D major should sharpen F and C only")
	}
	if d.Alter(-4) != 1 {
		t.Error("alteration should apply in every octave")
	}
	bb := Key{Sf: -2} // Bb major: Bb Eb
	if bb.Alter(6) != -1 || bb.Alter(2) != -1 || bb.Alter(5) != 0 {
		t.Error("Bb major should flatten B and E only")
	}
}

func TestSemitone(t *testing.T) {
	tests := []struct {
		name string
		head Head
		key  Key
		want int
	}{
		{"middle C", Head{Pitch: 0}, Key{}, 0},
		{"B3", Head{Pitch: -1}, Key{}, -1},
		{"F# from key", Head{Pitch: 3}, Key{Sf: 1}, 6},
		{"natural overrides key", Head{Pitch: 3, Acc: AccNatural}, Key{Sf: 1}, 5},
		{"Gb", Head{Pitch: 4, Acc: AccFlat}, Key{}, 6},
		{"C5", Head{Pitch: 7}, Key{}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Semitone(tt.head, tt.key); got != tt.want {
				t.Errorf("Semitone() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBarHard(t *testing.T) {
	if BarSingle.Hard() || BarDotted.Hard() {
		t.Error("single and dotted bars are soft")
	}
	for _, b := range []BarType{BarDouble, BarThinThick, BarRepeatEnd} {
		if !b.Hard() {
			t.Errorf("%v should be hard", b)
		}
	}
	if b, ok := ParseBar(":|"); !ok || b != BarRepeatEnd {
		t.Errorf("ParseBar(:|) = %v, %v", b, ok)
	}
}

func TestMeterMeasureLen(t *testing.T) {
	if got := (Meter{3, 4}).MeasureLen(); got != 3*Quarter {
		t.Errorf("3/4 = %d, want %d", got, 3*Quarter)
	}
	if got := (Meter{6, 8}).MeasureLen(); got != 6*Eighth {
		t.Errorf("6/8 = %d, want %d", got, 6*Eighth)
	}
	if got := (Meter{}).MeasureLen(); got != Whole {
		t.Errorf("free meter = %d, want %d", got, Whole)
	}
}
