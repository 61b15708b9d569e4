package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/engraver/pkg/score"
)

// WriteJSON encodes a tune as a JSON symbol stream and writes it to w.
// Symbols the engine inserted are left out; the output can be re-imported
// with [ReadJSON].
func WriteJSON(t *score.Tune, w io.Writer) error {
	return encode(w, export(t))
}

// WriteBook encodes several tunes as one document.
func WriteBook(tunes []*score.Tune, w io.Writer) error {
	out := book{Tunes: make([]tune, len(tunes))}
	for k, t := range tunes {
		out.Tunes[k] = export(t)
	}
	return encode(w, out)
}

// ExportJSON writes a tune to a JSON file at path.
func ExportJSON(t *score.Tune, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(t, f)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func export(t *score.Tune) tune {
	out := tune{Title: t.Title}
	for _, v := range t.Voices {
		vd := voice{
			ID:        v.ID,
			Staff:     v.Staff,
			Clef:      clefName(v.Clef),
			Key:       v.Key.Sf,
			Meter:     formatMeter(v.Meter),
			Floating:  v.Floating,
			Second:    v.Second,
			Transpose: v.Transpose,
			Symbols:   []symbol{},
		}
		if v.Stem != score.DirAuto {
			vd.Stem = v.Stem.String()
		}
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			if s.Has(score.FlagSynthetic) || s.Has(score.FlagGhost) {
				continue
			}
			vd.Symbols = append(vd.Symbols, exportSymbol(s))
		}
		out.Voices = append(out.Voices, vd)
	}
	for _, st := range t.Staves {
		out.Staves = append(out.Staves, staff{Lines: st.Lines})
	}
	for _, sys := range t.Systems {
		out.Systems = append(out.Systems, system{
			Time: sys.Time, Staves: sys.Staves, Braces: sys.Braces, Brackets: sys.Brackets,
		})
	}
	return out
}

func exportSymbol(s *score.Symbol) symbol {
	tm := s.Time
	sd := symbol{
		Type:        s.Kind.String(),
		Time:        &tm,
		Dur:         s.Written(),
		Heads:       exportHeads(s.Heads),
		BeamStart:   s.Has(score.FlagBeamStart),
		BeamEnd:     s.Has(score.FlagBeamEnd),
		BeamBreak:   s.Has(score.FlagBeamBreak),
		Text:        s.Text,
		Decorations: s.Decorations,
		Lyrics:      s.Lyrics,
		Annotations: s.Annotations,
		EOL:         s.Has(score.FlagEOL),
		MeasureRest: s.Has(score.FlagMeasureRest),
		Invisible:   s.Has(score.FlagInvisible),
	}
	switch s.Kind {
	case score.KindBar:
		sd.Bar = s.Bar.String()
	case score.KindClef:
		sd.Clef = clefName(s.Clef)
	case score.KindKeySig:
		sf := s.Key.Sf
		sd.Key = &sf
	case score.KindTimeSig:
		sd.Meter = formatMeter(s.Meter)
		if sd.Meter == "" {
			sd.Meter = "none"
		}
	case score.KindGrace:
		for _, g := range s.Grace {
			sd.Grace = append(sd.Grace, grace{Heads: exportHeads(g.Heads), Dur: g.Dur})
		}
	case score.KindTuplet:
		sd.Tuplet = &tuplet{P: s.Tuplet.P, Q: s.Tuplet.Q, R: s.Tuplet.R}
	}
	return sd
}

func exportHeads(hs []score.Head) []head {
	if len(hs) == 0 {
		return nil
	}
	out := make([]head, len(hs))
	for k, h := range hs {
		out[k] = head{
			Pitch: h.Pitch, Acc: h.Acc.String(),
			TieStart: h.TieStart, TieEnd: h.TieEnd,
			SlurStart: h.SlurStart, SlurEnd: h.SlurEnd,
		}
		if h.TieDir != score.DirAuto {
			out[k].TieDir = h.TieDir.String()
		}
		if h.SlurDir != score.DirAuto {
			out[k].SlurDir = h.SlurDir.String()
		}
	}
	return out
}

func clefName(c score.Clef) string {
	name := c.Name()
	if c.Auto {
		name = "auto"
	}
	switch c.Octave {
	case -1:
		name += "-8"
	case 1:
		name += "+8"
	}
	return name
}
