// Package glyph provides the glyph metrics the spacing engine measures
// symbols with.
//
// The real font tables belong to the rendering backends. The engine only
// needs advance widths, so [Metrics] is a small interface and [Default]
// returns a built-in table embedded in the binary. A TOML file with the
// same layout can override any entry (see [LoadTable]).
package glyph

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/mattn/go-runewidth"

	errs "github.com/matzehuels/engraver/pkg/errors"
)

// Glyph names known to the default table.
const (
	HeadBlack   = "head.black"
	HeadHalf    = "head.half"
	HeadWhole   = "head.whole"
	HeadBreve   = "head.breve"
	Dot         = "dot"
	Flag        = "flag"
	RestWhole   = "rest.whole"
	RestHalf    = "rest.half"
	RestQuarter = "rest.quarter"
	RestEighth  = "rest.eighth"
	RestShort   = "rest.short"
	KeySharp    = "key.sharp"
	KeyFlat     = "key.flat"
	MeterDigit  = "meter.digit"
	BarThin     = "bar.thin"
	BarThick    = "bar.thick"
	BarDots     = "bar.dots"
	GraceHead   = "grace.head"
	Custos      = "custos"
	Decoration  = "deco"
)

// Metrics measures glyphs and text.
type Metrics interface {
	// Width returns the advance width of a glyph, 0 if unknown.
	Width(name string) float64
	// TextWidth returns the width of s set at the given font size.
	TextWidth(s string, size float64) float64
}

// Table is a Metrics backed by a width table.
type Table struct {
	// CharWidth is the average advance of a narrow character relative to
	// the font size.
	CharWidth float64            `toml:"char_width"`
	Glyphs    map[string]float64 `toml:"glyphs"`
}

// Width implements Metrics.
func (t *Table) Width(name string) float64 {
	return t.Glyphs[name]
}

// TextWidth implements Metrics. East Asian wide characters count twice.
func (t *Table) TextWidth(s string, size float64) float64 {
	return float64(runewidth.StringWidth(s)) * size * t.CharWidth
}

//go:embed metrics.toml
var defaultTOML []byte

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default returns the built-in table. The result is shared and must not be
// modified.
func Default() *Table {
	defaultTableOnce.Do(func() {
		t, err := decode(bytes.NewReader(defaultTOML), nil)
		if err != nil {
			panic("glyph: bad embedded metrics: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}

// LoadTable reads a TOML metrics file. Entries it does not set keep their
// default width.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "metrics %s", path)
	}
	defer f.Close()
	return decode(f, Default())
}

func decode(r io.Reader, base *Table) (*Table, error) {
	t := &Table{Glyphs: map[string]float64{}}
	if base != nil {
		t.CharWidth = base.CharWidth
		for k, v := range base.Glyphs {
			t.Glyphs[k] = v
		}
	}
	var in Table
	md, err := toml.NewDecoder(r).Decode(&in)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode metrics")
	}
	if md.IsDefined("char_width") {
		t.CharWidth = in.CharWidth
	}
	for k, v := range in.Glyphs {
		t.Glyphs[k] = v
	}
	return t, nil
}
