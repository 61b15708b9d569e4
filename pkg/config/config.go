// Package config holds the numeric layout policy of the engraver.
//
// Every tunable of the engine lives in [Layout]: page width, glue limits,
// spacing ratios, beam and stem lengths, slur heights and staff gaps. The
// policy is loaded from TOML, and any field missing from the file keeps its
// [Default] value:
//
//	width = 500
//	max_shrink = 0.5
//
//	[beam]
//	max_slope = 0.4
//
// Out-of-range values are clamped by [Layout.Clamp], never rejected; the
// engine only ever sees a policy inside its valid ranges.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/engraver/pkg/errors"
)

// Layout is the complete layout policy. Lengths are in points.
type Layout struct {
	// Width is the usable line width.
	Width float64 `toml:"width" json:"width"`

	// MaxShrink is the fraction by which a column may shrink below its
	// natural space before the line is cut (0..1).
	MaxShrink float64 `toml:"max_shrink" json:"max_shrink"`
	// MaxStretch bounds the stretch of a column relative to its natural
	// space: Stretch = Space * (1 + MaxStretch).
	MaxStretch float64 `toml:"max_stretch" json:"max_stretch"`
	// StretchLast justifies the final line of a tune to the full width.
	StretchLast bool `toml:"stretch_last" json:"stretch_last"`

	Spacing Spacing `toml:"spacing" json:"spacing"`
	Beam    Beam    `toml:"beam" json:"beam"`
	Slur    Slur    `toml:"slur" json:"slur"`
	Staves  Staves  `toml:"staves" json:"staves"`

	// AutoClefThreshold is the diatonic pitch below which notes vote for
	// the bass clef on an auto-clef staff.
	AutoClefThreshold int `toml:"auto_clef_threshold" json:"auto_clef_threshold"`
	// FloatHysteresis is how many diatonic steps closer the other staff
	// must be before a floating voice switches to it.
	FloatHysteresis int `toml:"float_hysteresis" json:"float_hysteresis"`
}

// Spacing tunes the natural width of columns.
type Spacing struct {
	QuarterSpace      float64 `toml:"quarter_space" json:"quarter_space"`
	NoteSpacingFactor float64 `toml:"note_spacing_factor" json:"note_spacing_factor"`
	MinGap            float64 `toml:"min_gap" json:"min_gap"`
	BeamCompress      float64 `toml:"beam_compress" json:"beam_compress"`
	TupletCompress    float64 `toml:"tuplet_compress" json:"tuplet_compress"`
}

// Beam tunes stems and beams.
type Beam struct {
	MaxSlope      float64 `toml:"max_slope" json:"max_slope"`
	FlatThreshold float64 `toml:"flat_threshold" json:"flat_threshold"`
	// MinStemLen is indexed by the flag count of a note (capped at 4), and
	// measured from the head nearest the beam to the outer beam edge.
	MinStemLen [5]float64 `toml:"min_stem_len" json:"min_stem_len"`
	StemLen    float64    `toml:"stem_len" json:"stem_len"`
	Depth      float64    `toml:"depth" json:"depth"`
	Spacing    float64    `toml:"spacing" json:"spacing"`
}

// Slur tunes slur and tie curvature.
type Slur struct {
	HeightFactor float64 `toml:"height_factor" json:"height_factor"`
	MinHeight    float64 `toml:"min_height" json:"min_height"`
	MaxHeight    float64 `toml:"max_height" json:"max_height"`
}

// Staves tunes vertical stacking.
type Staves struct {
	TopMargin float64 `toml:"top_margin" json:"top_margin"`
	MinGap    float64 `toml:"min_gap" json:"min_gap"`
	MaxGap    float64 `toml:"max_gap" json:"max_gap"`
	Padding   float64 `toml:"padding" json:"padding"`
}

// Default returns the built-in policy.
func Default() Layout {
	return Layout{
		Width:      540,
		MaxShrink:  0.65,
		MaxStretch: 1.0,
		Spacing: Spacing{
			QuarterSpace:      30,
			NoteSpacingFactor: 1.414,
			MinGap:            2,
			BeamCompress:      0.9,
			TupletCompress:    0.9,
		},
		Beam: Beam{
			MaxSlope:      0.5,
			FlatThreshold: 0.05,
			MinStemLen:    [5]float64{14, 14, 17, 20, 23},
			StemLen:       20,
			Depth:         3.2,
			Spacing:       5,
		},
		Slur: Slur{
			HeightFactor: 0.12,
			MinHeight:    3,
			MaxHeight:    12,
		},
		Staves: Staves{
			TopMargin: 10,
			MinGap:    10,
			MaxGap:    60,
			Padding:   4,
		},
		AutoClefThreshold: 0,
		FloatHysteresis:   2,
	}
}

// Load reads a TOML policy file on top of the defaults.
func Load(path string) (Layout, error) {
	if err := errs.ValidatePath(path); err != nil {
		return Layout{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Layout{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "config %s", path)
		}
		return Layout{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "open %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a TOML policy from r on top of the defaults and clamps it.
func Decode(r io.Reader) (Layout, error) {
	l := Default()
	md, err := toml.NewDecoder(r).Decode(&l)
	if err != nil {
		return Layout{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "decode layout policy")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Layout{}, errs.New(errs.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
	}
	l.Clamp()
	return l, nil
}

// Encode writes the policy as TOML.
func (l Layout) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(l)
}

// Bytes returns the TOML encoding of the policy, used as a cache key input.
func (l Layout) Bytes() []byte {
	var buf bytes.Buffer
	_ = l.Encode(&buf)
	return buf.Bytes()
}

// Clamp forces every field into its valid range.
func (l *Layout) Clamp() {
	l.Width = clamp(l.Width, 50, 5000)
	l.MaxShrink = clamp(l.MaxShrink, 0, 1)
	l.MaxStretch = clamp(l.MaxStretch, 0, 10)

	s := &l.Spacing
	s.QuarterSpace = clamp(s.QuarterSpace, 4, 200)
	s.NoteSpacingFactor = clamp(s.NoteSpacingFactor, 1, 3)
	s.MinGap = clamp(s.MinGap, 0, 20)
	s.BeamCompress = clamp(s.BeamCompress, 0.1, 1)
	s.TupletCompress = clamp(s.TupletCompress, 0.1, 1)

	b := &l.Beam
	b.MaxSlope = clamp(b.MaxSlope, 0, 2)
	b.FlatThreshold = clamp(b.FlatThreshold, 0, b.MaxSlope)
	for k := range b.MinStemLen {
		b.MinStemLen[k] = clamp(b.MinStemLen[k], 0, 60)
	}
	b.StemLen = clamp(b.StemLen, 6, 60)
	b.Depth = clamp(b.Depth, 0.5, 10)
	b.Spacing = clamp(b.Spacing, b.Depth, 20)

	sl := &l.Slur
	sl.HeightFactor = clamp(sl.HeightFactor, 0, 1)
	sl.MinHeight = clamp(sl.MinHeight, 0, 50)
	sl.MaxHeight = clamp(sl.MaxHeight, sl.MinHeight, 100)

	st := &l.Staves
	st.TopMargin = clamp(st.TopMargin, 0, 200)
	st.MinGap = clamp(st.MinGap, 0, 200)
	st.MaxGap = clamp(st.MaxGap, st.MinGap, 500)
	st.Padding = clamp(st.Padding, 0, 50)

	l.AutoClefThreshold = min(max(l.AutoClefThreshold, -21), 21)
	l.FloatHysteresis = min(max(l.FloatHysteresis, 0), 14)
}

// StemMin returns the minimum stem length for a note with n flags.
func (b Beam) StemMin(n int) float64 {
	return b.MinStemLen[min(max(n, 0), len(b.MinStemLen)-1)]
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
