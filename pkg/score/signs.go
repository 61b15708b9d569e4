package score

import "fmt"

// BarType enumerates bar line shapes.
type BarType uint8

const (
	BarSingle BarType = iota
	BarDouble
	BarThinThick
	BarThickThin
	BarRepeatStart
	BarRepeatEnd
	BarRepeatBoth
	BarDotted
	BarInvisible
)

var barNames = [...]string{"|", "||", "|]", "[|", "|:", ":|", "::", ".|", "[]"}

func (b BarType) String() string {
	if int(b) < len(barNames) {
		return barNames[b]
	}
	return "?"
}

// ParseBar maps the bar notation ("|", "||", "|]", ...) to a BarType.
func ParseBar(s string) (BarType, bool) {
	if s == "" {
		return BarSingle, true
	}
	for i, name := range barNames {
		if name == s {
			return BarType(i), true
		}
	}
	return BarSingle, false
}

// Hard reports whether slurs and ties must be split at this bar.
func (b BarType) Hard() bool {
	switch b {
	case BarDouble, BarThinThick, BarThickThin, BarRepeatStart, BarRepeatEnd, BarRepeatBoth:
		return true
	}
	return false
}

// ClefType is the clef glyph.
type ClefType uint8

const (
	ClefG ClefType = iota
	ClefF
	ClefC
	ClefPerc
)

// Clef is a clef with its staff line (1 = bottom) and octave shift.
type Clef struct {
	Type   ClefType
	Line   int
	Octave int  // -1 for "8 below", +1 for "8 above"
	Auto   bool // chosen by the engine
}

// Treble returns the G clef on the second line.
func Treble() Clef { return Clef{Type: ClefG, Line: 2} }

// Bass returns the F clef on the fourth line.
func Bass() Clef { return Clef{Type: ClefF, Line: 4} }

// Alto returns the C clef on the third line.
func Alto() Clef { return Clef{Type: ClefC, Line: 3} }

// Tenor returns the C clef on the fourth line.
func Tenor() Clef { return Clef{Type: ClefC, Line: 4} }

// BottomPitch is the diatonic pitch sitting on the bottom staff line.
func (c Clef) BottomPitch() int {
	line := c.Line
	if line == 0 {
		line = c.defaultLine()
	}
	var ref int
	switch c.Type {
	case ClefG:
		ref = 4 // G4
	case ClefF:
		ref = -4 // F3
	default:
		ref = 0 // C4, percussion behaves like an alto clef
	}
	return ref - 2*(line-1) + 7*c.Octave
}

func (c Clef) defaultLine() int {
	switch c.Type {
	case ClefG:
		return 2
	case ClefF:
		return 4
	default:
		return 3
	}
}

// Name returns the clef name used in the serialized format.
func (c Clef) Name() string {
	switch {
	case c.Type == ClefG && c.Line == 2:
		return "treble"
	case c.Type == ClefF && c.Line == 4:
		return "bass"
	case c.Type == ClefC && c.Line == 3:
		return "alto"
	case c.Type == ClefC && c.Line == 4:
		return "tenor"
	case c.Type == ClefPerc:
		return "perc"
	}
	return fmt.Sprintf("%c%d", "GFCP"[c.Type], c.Line)
}

// ParseClef parses "treble", "bass", "alto", "tenor", "perc", "auto" or a
// glyph/line form such as "G2" or "C1". A trailing "-8" or "+8" shifts the
// octave.
func ParseClef(s string) (Clef, bool) {
	var oct int
	switch {
	case len(s) > 2 && s[len(s)-2:] == "-8":
		oct, s = -1, s[:len(s)-2]
	case len(s) > 2 && s[len(s)-2:] == "+8":
		oct, s = 1, s[:len(s)-2]
	}
	var c Clef
	switch s {
	case "", "treble":
		c = Treble()
	case "bass":
		c = Bass()
	case "alto":
		c = Alto()
	case "tenor":
		c = Tenor()
	case "perc":
		c = Clef{Type: ClefPerc, Line: 3}
	case "auto":
		c = Treble()
		c.Auto = true
	default:
		if len(s) != 2 || s[1] < '1' || s[1] > '5' {
			return Clef{}, false
		}
		switch s[0] {
		case 'G':
			c.Type = ClefG
		case 'F':
			c.Type = ClefF
		case 'C':
			c.Type = ClefC
		default:
			return Clef{}, false
		}
		c.Line = int(s[1] - '0')
	}
	c.Octave = oct
	return c, true
}

// Key is a key signature by number of sharps (positive) or flats (negative).
type Key struct {
	Sf int
}

// sharpOrder and flatOrder list diatonic steps (0 = C) in signature order.
var (
	sharpOrder = [7]int{3, 0, 4, 1, 5, 2, 6} // F C G D A E B
	flatOrder  = [7]int{6, 2, 5, 1, 4, 0, 3} // B E A D G C F
)

// Alter returns the alteration the key applies to a diatonic pitch.
func (k Key) Alter(pitch int) int {
	step := ((pitch % 7) + 7) % 7
	if k.Sf > 0 {
		for _, s := range sharpOrder[:min(k.Sf, 7)] {
			if s == step {
				return 1
			}
		}
	}
	if k.Sf < 0 {
		for _, s := range flatOrder[:min(-k.Sf, 7)] {
			if s == step {
				return -1
			}
		}
	}
	return 0
}

// Count returns the number of accidentals in the signature.
func (k Key) Count() int {
	if k.Sf < 0 {
		return -k.Sf
	}
	return k.Sf
}

// Meter is a time signature.
type Meter struct {
	Num, Den int
}

// MeasureLen returns the measure length in ticks, a whole note when unset.
func (m Meter) MeasureLen() int {
	if m.Num <= 0 || m.Den <= 0 {
		return BaseLen
	}
	return BaseLen * m.Num / m.Den
}

func (m Meter) String() string {
	if m.Num == 0 {
		return "none"
	}
	return fmt.Sprintf("%d/%d", m.Num, m.Den)
}

var stepSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// Semitone returns the chromatic pitch of a head (middle C = 0) under key k.
// An explicit accidental overrides the key signature.
func Semitone(h Head, k Key) int {
	oct := h.Pitch / 7
	step := h.Pitch % 7
	if step < 0 {
		step += 7
		oct--
	}
	alt, ok := h.Acc.Alter()
	if !ok {
		alt = k.Alter(h.Pitch)
	}
	return oct*12 + stepSemitones[step] + alt
}
