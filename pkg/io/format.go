package io

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/engraver/pkg/score"
)

// book is the top-level document: a single tune, or several under "tunes".
type book struct {
	Tunes []tune `json:"tunes,omitempty"`
	tune
}

type tune struct {
	Title   string   `json:"title,omitempty"`
	Voices  []voice  `json:"voices,omitempty"`
	Staves  []staff  `json:"staves,omitempty"`
	Systems []system `json:"systems,omitempty"`
}

type voice struct {
	ID        string   `json:"id"`
	Staff     int      `json:"staff"`
	Clef      string   `json:"clef,omitempty"`
	Key       int      `json:"key,omitempty"`
	Meter     string   `json:"meter,omitempty"`
	Floating  bool     `json:"floating,omitempty"`
	Second    bool     `json:"second,omitempty"`
	Stem      string   `json:"stem,omitempty"`
	Transpose int      `json:"transpose,omitempty"`
	Symbols   []symbol `json:"symbols"`
}

type staff struct {
	Lines int `json:"lines,omitempty"`
}

type system struct {
	Time     int      `json:"time"`
	Staves   []int    `json:"staves"`
	Braces   [][2]int `json:"braces,omitempty"`
	Brackets [][2]int `json:"brackets,omitempty"`
}

type symbol struct {
	Type        string   `json:"type"`
	Time        *int     `json:"time,omitempty"`
	Dur         int      `json:"dur,omitempty"`
	Heads       []head   `json:"heads,omitempty"`
	BeamStart   bool     `json:"beam_start,omitempty"`
	BeamEnd     bool     `json:"beam_end,omitempty"`
	BeamBreak   bool     `json:"beam_break,omitempty"`
	Bar         string   `json:"bar,omitempty"`
	Clef        string   `json:"clef,omitempty"`
	Key         *int     `json:"key,omitempty"`
	Meter       string   `json:"meter,omitempty"`
	Text        string   `json:"text,omitempty"`
	Decorations []string `json:"decorations,omitempty"`
	Lyrics      []string `json:"lyrics,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	Grace       []grace  `json:"grace,omitempty"`
	Tuplet      *tuplet  `json:"tuplet,omitempty"`
	EOL         bool     `json:"eol,omitempty"`
	MeasureRest bool     `json:"measure_rest,omitempty"`
	Invisible   bool     `json:"invisible,omitempty"`
}

type head struct {
	Pitch     int    `json:"pitch"`
	Acc       string `json:"acc,omitempty"`
	TieStart  bool   `json:"tie_start,omitempty"`
	TieEnd    bool   `json:"tie_end,omitempty"`
	SlurStart int    `json:"slur_start,omitempty"`
	SlurEnd   int    `json:"slur_end,omitempty"`
	TieDir    string `json:"tie_dir,omitempty"`
	SlurDir   string `json:"slur_dir,omitempty"`
}

type grace struct {
	Heads []head `json:"heads"`
	Dur   int    `json:"dur,omitempty"`
}

type tuplet struct {
	P int `json:"p"`
	Q int `json:"q"`
	R int `json:"r"`
}

// ParseMeter parses "3/4", "C" (4/4), "C|" (2/2) and "none".
func ParseMeter(s string) (score.Meter, error) {
	switch s {
	case "", "none":
		return score.Meter{}, nil
	case "C":
		return score.Meter{Num: 4, Den: 4}, nil
	case "C|":
		return score.Meter{Num: 2, Den: 2}, nil
	}
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return score.Meter{}, fmt.Errorf("invalid meter %q", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return score.Meter{}, fmt.Errorf("invalid meter numerator %q", num)
	}
	d, err := strconv.Atoi(den)
	if err != nil || d <= 0 || d&(d-1) != 0 {
		return score.Meter{}, fmt.Errorf("invalid meter denominator %q", den)
	}
	return score.Meter{Num: n, Den: d}, nil
}

func formatMeter(m score.Meter) string {
	if m.Num == 0 {
		return ""
	}
	return m.String()
}
