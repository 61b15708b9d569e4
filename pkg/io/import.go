package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

// ReadJSON decodes a single tune from r.
//
// The input is either a tune object or a book holding exactly one tune.
// Use [ReadBook] for documents with several tunes.
//
// ReadJSON returns an INVALID_FORMAT error for malformed JSON and an
// INVALID_INPUT error for content the engine cannot lay out: unknown
// symbol types, duplicate or malformed voice ids, pitches or durations out
// of range, times running backwards. Errors name the voice and symbol
// position that caused them. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*score.Tune, error) {
	tunes, err := ReadBook(r)
	if err != nil {
		return nil, err
	}
	if len(tunes) != 1 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "document holds %d tunes, want 1", len(tunes))
	}
	return tunes[0], nil
}

// ReadBook decodes every tune of a document from r.
func ReadBook(r io.Reader) ([]*score.Tune, error) {
	var data book
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode")
	}

	docs := data.Tunes
	if len(docs) == 0 {
		docs = []tune{data.tune}
	}
	out := make([]*score.Tune, 0, len(docs))
	for k, d := range docs {
		t, err := build(d)
		if err != nil {
			if len(docs) > 1 {
				return nil, fmt.Errorf("tune %d: %w", k+1, err)
			}
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ImportJSON reads a JSON file at path and returns the decoded tune.
func ImportJSON(path string) (*score.Tune, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// ImportBook reads every tune of a JSON file at path.
func ImportBook(path string) ([]*score.Tune, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBook(f)
}

func open(path string) (*os.File, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// ===== Building =====

func build(d tune) (*score.Tune, error) {
	if len(d.Voices) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "tune %q has no voices", d.Title)
	}
	t := score.NewTune(d.Title)

	for k, vd := range d.Voices {
		if err := errs.ValidateVoiceID(vd.ID); err != nil {
			return nil, err
		}
		if t.Voice(vd.ID) != nil {
			return nil, errs.New(errs.ErrCodeInvalidInput, "duplicate voice id %q", vd.ID)
		}
		if vd.Staff < 0 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "voice %s: negative staff %d", vd.ID, vd.Staff)
		}
		v := t.AddVoice(vd.ID, vd.Staff)
		if err := header(v, vd); err != nil {
			return nil, err
		}
		opens := opensStaff(d.Voices, k)
		if opens {
			t.Staves[v.Staff].Clef = v.Clef
		}
		if err := symbols(t, v, vd, opens); err != nil {
			return nil, err
		}
	}

	t.EnsureStaves(len(d.Staves))
	for k, sd := range d.Staves {
		if sd.Lines > 0 {
			t.Staves[k].Lines = sd.Lines
		}
	}
	for _, sd := range d.Systems {
		for _, st := range sd.Staves {
			if st < 0 || st >= len(t.Staves) {
				return nil, errs.New(errs.ErrCodeInvalidInput, "system at %d: unknown staff %d", sd.Time, st)
			}
		}
		t.Systems = append(t.Systems, score.System{
			Time: sd.Time, Staves: sd.Staves, Braces: sd.Braces, Brackets: sd.Brackets,
		})
	}

	if err := t.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "tune %q", d.Title)
	}
	return t, nil
}

// opensStaff reports whether voice k is the first voice declared on its
// staff.
func opensStaff(vs []voice, k int) bool {
	for _, v := range vs[:k] {
		if v.Staff == vs[k].Staff {
			return false
		}
	}
	return true
}

func header(v *score.Voice, vd voice) error {
	c, ok := score.ParseClef(vd.Clef)
	if !ok {
		return errs.New(errs.ErrCodeInvalidInput, "voice %s: invalid clef %q", vd.ID, vd.Clef)
	}
	m, err := ParseMeter(vd.Meter)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "voice %s", vd.ID)
	}
	stem, ok := score.ParseDirection(vd.Stem)
	if !ok {
		return errs.New(errs.ErrCodeInvalidInput, "voice %s: invalid stem %q", vd.ID, vd.Stem)
	}
	if vd.Key < -7 || vd.Key > 7 {
		return errs.New(errs.ErrCodeInvalidInput, "voice %s: key %d out of range", vd.ID, vd.Key)
	}
	v.Clef, v.Key, v.Meter = c, score.Key{Sf: vd.Key}, m
	v.Floating, v.Second, v.Stem = vd.Floating, vd.Second, stem
	v.Transpose = vd.Transpose
	return nil
}

// symbols appends the symbols of a voice. The first voice of a staff is
// opened with its header signatures unless it starts with its own.
func symbols(t *score.Tune, v *score.Voice, vd voice, opens bool) error {
	if opens {
		clef, key, meter := leading(vd.Symbols)
		if !clef {
			t.Append(v, score.ClefChange(v.Clef))
		}
		if !key && v.Key.Sf != 0 {
			t.Append(v, score.KeyChange(v.Key))
		}
		if !meter && v.Meter.Num > 0 {
			t.Append(v, score.MeterChange(v.Meter))
		}
	}

	var tup score.Tuplet
	left := 0
	for n, sd := range vd.Symbols {
		s, err := convert(sd)
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "voice %s symbol %d", vd.ID, n+1)
		}

		switch {
		case s.Kind == score.KindTuplet:
			tup, left = s.Tuplet, s.Tuplet.R
		case left > 0 && (s.Kind == score.KindNote || s.Kind == score.KindRest):
			s.Len = s.Dur
			s.Dur = s.Dur * tup.Q / tup.P
			s.Set(score.FlagInTuplet)
			left--
		}

		i := t.Append(v, s)
		if sd.Time != nil {
			got := t.At(i)
			if *sd.Time < got.Time {
				return errs.New(errs.ErrCodeInvalidInput,
					"voice %s symbol %d: time %d before end of previous symbol (%d)", vd.ID, n+1, *sd.Time, got.Time)
			}
			got.Time = *sd.Time
		}
	}
	return nil
}

// leading reports which signatures a voice opens with, before its first
// timed symbol.
func leading(syms []symbol) (clef, key, meter bool) {
	for _, sd := range syms {
		switch sd.Type {
		case "clef":
			clef = true
		case "key":
			key = true
		case "meter":
			meter = true
		case "note", "rest", "bar":
			return
		}
	}
	return
}

func convert(sd symbol) (score.Symbol, error) {
	kind, ok := score.ParseKind(sd.Type)
	if !ok {
		return score.Symbol{}, fmt.Errorf("unknown symbol type %q", sd.Type)
	}
	if err := errs.ValidateDuration(sd.Dur); err != nil {
		return score.Symbol{}, err
	}
	s := score.Symbol{
		Kind:        kind,
		Dur:         sd.Dur,
		Text:        sd.Text,
		Decorations: sd.Decorations,
		Lyrics:      sd.Lyrics,
		Annotations: sd.Annotations,
	}

	var err error
	if s.Heads, err = heads(sd.Heads); err != nil {
		return s, err
	}

	switch kind {
	case score.KindNote:
		if len(s.Heads) == 0 {
			return s, fmt.Errorf("note without heads")
		}
		if s.Dur == 0 {
			return s, fmt.Errorf("note without duration")
		}
	case score.KindRest:
		s.Heads = nil
		if sd.MeasureRest {
			s.Set(score.FlagMeasureRest)
		}
	case score.KindBar:
		if s.Bar, ok = score.ParseBar(sd.Bar); !ok {
			return s, fmt.Errorf("invalid bar %q", sd.Bar)
		}
		s.Dur = 0
	case score.KindClef:
		if s.Clef, ok = score.ParseClef(sd.Clef); !ok {
			return s, fmt.Errorf("invalid clef %q", sd.Clef)
		}
		s.Dur = 0
	case score.KindKeySig:
		if sd.Key == nil || *sd.Key < -7 || *sd.Key > 7 {
			return s, fmt.Errorf("key signature needs a key in [-7, 7]")
		}
		s.Key = score.Key{Sf: *sd.Key}
		s.Dur = 0
	case score.KindTimeSig:
		if s.Meter, err = ParseMeter(sd.Meter); err != nil {
			return s, err
		}
		s.Dur = 0
	case score.KindGrace:
		for k, g := range sd.Grace {
			gh, err := heads(g.Heads)
			if err != nil {
				return s, fmt.Errorf("grace note %d: %w", k+1, err)
			}
			if len(gh) == 0 {
				return s, fmt.Errorf("grace note %d without heads", k+1)
			}
			dur := g.Dur
			if dur == 0 {
				dur = score.Eighth
			}
			s.Grace = append(s.Grace, score.GraceNote{Heads: gh, Dur: dur})
		}
		s.Dur = 0
	case score.KindTuplet:
		if sd.Tuplet == nil || sd.Tuplet.P <= 0 || sd.Tuplet.Q <= 0 || sd.Tuplet.R <= 0 {
			return s, fmt.Errorf("tuplet needs positive p, q and r")
		}
		s.Tuplet = score.Tuplet{P: sd.Tuplet.P, Q: sd.Tuplet.Q, R: sd.Tuplet.R}
		s.Dur = 0
	default:
		s.Dur = 0
	}

	if sd.BeamStart {
		s.Set(score.FlagBeamStart)
	}
	if sd.BeamEnd {
		s.Set(score.FlagBeamEnd)
	}
	if sd.BeamBreak {
		s.Set(score.FlagBeamBreak)
	}
	if sd.EOL {
		s.Set(score.FlagEOL)
	}
	if sd.Invisible {
		s.Set(score.FlagInvisible)
	}
	return s, nil
}

func heads(hs []head) ([]score.Head, error) {
	if len(hs) == 0 {
		return nil, nil
	}
	out := make([]score.Head, len(hs))
	for k, h := range hs {
		if err := errs.ValidatePitch(h.Pitch); err != nil {
			return nil, err
		}
		acc, ok := score.ParseAccidental(h.Acc)
		if !ok {
			return nil, fmt.Errorf("invalid accidental %q", h.Acc)
		}
		tie, ok := score.ParseDirection(h.TieDir)
		if !ok {
			return nil, fmt.Errorf("invalid tie direction %q", h.TieDir)
		}
		slur, ok := score.ParseDirection(h.SlurDir)
		if !ok {
			return nil, fmt.Errorf("invalid slur direction %q", h.SlurDir)
		}
		if h.SlurStart < 0 || h.SlurEnd < 0 {
			return nil, fmt.Errorf("negative slur count")
		}
		out[k] = score.Head{
			Pitch: h.Pitch, Acc: acc,
			TieStart: h.TieStart, TieEnd: h.TieEnd,
			SlurStart: h.SlurStart, SlurEnd: h.SlurEnd,
			TieDir: tie, SlurDir: slur,
		}
	}
	return out, nil
}
