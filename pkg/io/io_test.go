package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

const minuet = `{
  "title": "Minuet",
  "voices": [
    {
      "id": "V1", "staff": 0, "clef": "treble", "key": -1, "meter": "3/4",
      "symbols": [
        {"type": "note", "dur": 384, "heads": [{"pitch": 4, "slur_start": 1}]},
        {"type": "tuplet", "tuplet": {"p": 3, "q": 2, "r": 3}},
        {"type": "note", "dur": 192, "heads": [{"pitch": 5}], "beam_start": true},
        {"type": "note", "dur": 192, "heads": [{"pitch": 6}]},
        {"type": "note", "dur": 192, "heads": [{"pitch": 7, "slur_end": 1}], "beam_end": true},
        {"type": "note", "dur": 384, "heads": [{"pitch": 2, "acc": "sharp", "tie_start": true, "tie_dir": "down"}]},
        {"type": "bar", "bar": "|"},
        {"type": "note", "dur": 1152, "heads": [{"pitch": 2, "tie_end": true}], "lyrics": ["la"]},
        {"type": "bar", "bar": "|]", "eol": true}
      ]
    },
    {
      "id": "B", "staff": 1, "clef": "bass", "key": -1, "meter": "3/4",
      "symbols": [
        {"type": "rest", "dur": 1152, "measure_rest": true},
        {"type": "bar", "bar": "|"},
        {"type": "rest", "time": 1152, "dur": 1152, "measure_rest": true},
        {"type": "bar", "bar": "|]"}
      ]
    }
  ],
  "systems": [{"time": 0, "staves": [0, 1], "braces": [[0, 1]]}]
}`

func kinds(t *score.Tune, v *score.Voice) []score.Kind {
	var out []score.Kind
	for i := v.First; i != score.Nil; i = t.At(i).Next {
		out = append(out, t.At(i).Kind)
	}
	return out
}

func TestReadJSON(t *testing.T) {
	tune, err := ReadJSON(strings.NewReader(minuet))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if tune.Title != "Minuet" || len(tune.Voices) != 2 || len(tune.Staves) != 2 {
		t.Fatalf("got title %q, %d voices, %d staves", tune.Title, len(tune.Voices), len(tune.Staves))
	}

	v := tune.Voices[0]
	got := kinds(tune, v)
	if len(got) < 3 || got[0] != score.KindClef || got[1] != score.KindKeySig || got[2] != score.KindTimeSig {
		t.Fatalf("voice does not open with its signatures: %v", got)
	}
	if v.Key.Sf != -1 || v.Meter != (score.Meter{Num: 3, Den: 4}) {
		t.Errorf("header key %d meter %v", v.Key.Sf, v.Meter)
	}
	if tune.Staves[1].Clef != score.Bass() {
		t.Errorf("staff 1 clef = %v, want bass", tune.Staves[1].Clef.Name())
	}

	t.Run("tuplet", func(t *testing.T) {
		var in []*score.Symbol
		for i := v.First; i != score.Nil; i = tune.At(i).Next {
			if s := tune.At(i); s.Has(score.FlagInTuplet) {
				in = append(in, s)
			}
		}
		if len(in) != 3 {
			t.Fatalf("%d notes in tuplet, want 3", len(in))
		}
		for _, s := range in {
			if s.Dur != 128 || s.Written() != score.Eighth {
				t.Errorf("tuplet note dur %d written %d, want 128 and %d", s.Dur, s.Written(), score.Eighth)
			}
		}
	})

	t.Run("times", func(t *testing.T) {
		last := tune.At(v.Last)
		if last.Kind != score.KindBar || last.Time != 3*score.Quarter*2 {
			t.Errorf("final bar at %d, want %d", last.Time, 6*score.Quarter)
		}
		if !last.Has(score.FlagEOL) || last.Bar != score.BarThinThick {
			t.Errorf("final bar flags %b bar %v", last.Flags, last.Bar)
		}
	})

	t.Run("heads", func(t *testing.T) {
		var tied *score.Symbol
		for i := v.First; i != score.Nil; i = tune.At(i).Next {
			if s := tune.At(i); s.IsNote() && s.Heads[0].TieStart {
				tied = s
			}
		}
		if tied == nil {
			t.Fatal("tie start lost")
		}
		h := tied.Heads[0]
		if h.Acc != score.AccSharp || h.TieDir != score.DirDown {
			t.Errorf("head acc %v tie dir %v", h.Acc, h.TieDir)
		}
	})

	if len(tune.Systems) != 1 || len(tune.Systems[0].Braces) != 1 {
		t.Errorf("systems = %+v", tune.Systems)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errs.Code
	}{
		{"malformed", `{"voices": [`, errs.ErrCodeInvalidFormat},
		{"no voices", `{"title": "x"}`, errs.ErrCodeInvalidInput},
		{"empty id", `{"voices": [{"id": "", "symbols": []}]}`, errs.ErrCodeInvalidInput},
		{"duplicate id", `{"voices": [{"id": "a", "symbols": []}, {"id": "a", "symbols": []}]}`, errs.ErrCodeInvalidInput},
		{"unknown type", `{"voices": [{"id": "a", "symbols": [{"type": "chord"}]}]}`, errs.ErrCodeInvalidInput},
		{"pitch range", `{"voices": [{"id": "a", "symbols": [{"type": "note", "dur": 384, "heads": [{"pitch": 99}]}]}]}`, errs.ErrCodeInvalidInput},
		{"negative duration", `{"voices": [{"id": "a", "symbols": [{"type": "rest", "dur": -1}]}]}`, errs.ErrCodeInvalidInput},
		{"note without heads", `{"voices": [{"id": "a", "symbols": [{"type": "note", "dur": 384}]}]}`, errs.ErrCodeInvalidInput},
		{"bad clef", `{"voices": [{"id": "a", "clef": "X9", "symbols": []}]}`, errs.ErrCodeInvalidInput},
		{"bad meter", `{"voices": [{"id": "a", "meter": "3/5", "symbols": []}]}`, errs.ErrCodeInvalidInput},
		{"bad accidental", `{"voices": [{"id": "a", "symbols": [{"type": "note", "dur": 384, "heads": [{"pitch": 1, "acc": "sharpish"}]}]}]}`, errs.ErrCodeInvalidInput},
		{"time backwards", `{"voices": [{"id": "a", "symbols": [{"type": "rest", "dur": 384}, {"type": "rest", "time": 100, "dur": 384}]}]}`, errs.ErrCodeInvalidInput},
		{"unknown system staff", `{"voices": [{"id": "a", "symbols": []}], "systems": [{"time": 0, "staves": [3]}]}`, errs.ErrCodeInvalidInput},
		{"two tunes", `{"tunes": [{"voices": [{"id": "a", "symbols": []}]}, {"voices": [{"id": "a", "symbols": []}]}]}`, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errs.Is(err, tt.code) {
				t.Errorf("error %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tune, err := ReadJSON(strings.NewReader(minuet))
	if err != nil {
		t.Fatal(err)
	}
	var first bytes.Buffer
	if err := WriteJSON(tune, &first); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	again, err := ReadJSON(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	for k, v := range tune.Voices {
		a, b := tune.VoiceChain(v), again.VoiceChain(again.Voices[k])
		if len(a) != len(b) {
			t.Fatalf("voice %s: %d symbols, re-read %d", v.ID, len(a), len(b))
		}
		for n := range a {
			x, y := tune.At(a[n]), again.At(b[n])
			if x.Kind != y.Kind || x.Time != y.Time || x.Dur != y.Dur || x.Flags != y.Flags {
				t.Errorf("voice %s symbol %d: %v@%d/%d vs %v@%d/%d", v.ID, n, x.Kind, x.Time, x.Dur, y.Kind, y.Time, y.Dur)
			}
		}
	}

	var second bytes.Buffer
	if err := WriteJSON(again, &second); err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Error("second export differs from the first")
	}
}

func TestExportSkipsEngineSymbols(t *testing.T) {
	tune := score.NewTune("synthetic")
	v := tune.AddVoice("V1", 0)
	tune.Append(v, score.Note(score.Quarter, 2))
	clef := score.ClefChange(score.Bass())
	clef.Set(score.FlagSynthetic)
	tune.Append(v, clef)
	tune.Append(v, score.Note(score.Quarter, -6))

	var buf bytes.Buffer
	if err := WriteJSON(tune, &buf); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), `"bass"`) {
		t.Errorf("synthetic clef exported:\n%s", buf.String())
	}
}

func TestBook(t *testing.T) {
	doc := `{"tunes": [
	  {"title": "one", "voices": [{"id": "a", "symbols": [{"type": "note", "dur": 384, "heads": [{"pitch": 0}]}]}]},
	  {"title": "two", "voices": [{"id": "a", "clef": "auto", "symbols": [{"type": "rest", "dur": 384}]}]}
	]}`
	tunes, err := ReadBook(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(tunes) != 2 || tunes[0].Title != "one" || tunes[1].Title != "two" {
		t.Fatalf("got %d tunes", len(tunes))
	}
	if !tunes[1].Voices[0].Clef.Auto {
		t.Error("auto clef lost")
	}

	path := filepath.Join(t.TempDir(), "book.json")
	var buf bytes.Buffer
	if err := WriteBook(tunes, &buf); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	back, err := ImportBook(path)
	if err != nil {
		t.Fatalf("ImportBook: %v", err)
	}
	if len(back) != 2 {
		t.Errorf("re-imported %d tunes", len(back))
	}
}

func TestImportMissingFile(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("error %v, want FILE_NOT_FOUND", err)
	}
}

func TestExportJSON(t *testing.T) {
	tune, err := ReadJSON(strings.NewReader(minuet))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(tune, path); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	back, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if back.Title != tune.Title || len(back.Voices) != len(tune.Voices) {
		t.Error("file round trip lost data")
	}
}

func TestParseMeter(t *testing.T) {
	tests := []struct {
		in   string
		want score.Meter
		ok   bool
	}{
		{"3/4", score.Meter{Num: 3, Den: 4}, true},
		{"6/8", score.Meter{Num: 6, Den: 8}, true},
		{"C", score.Meter{Num: 4, Den: 4}, true},
		{"C|", score.Meter{Num: 2, Den: 2}, true},
		{"none", score.Meter{}, true},
		{"", score.Meter{}, true},
		{"3", score.Meter{}, false},
		{"0/4", score.Meter{}, false},
		{"3/6", score.Meter{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMeter(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseMeter(%q) error = %v, want ok %v", tt.in, err, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseMeter(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
