package score

import "fmt"

// Durations in ticks.
const (
	BaseLen   = 1536
	Whole     = BaseLen
	Half      = BaseLen / 2
	Quarter   = BaseLen / 4
	Eighth    = BaseLen / 8
	Sixteenth = BaseLen / 16
	ThirtySec = BaseLen / 32
	SixtyFour = BaseLen / 64
)

// Staff geometry in points.
const (
	StepHeight  = 3.0  // one diatonic step
	StaffHeight = 24.0 // bottom line to top line
	MiddleLine  = 4    // staff offset of the middle line
)

// Kind tags the variant of a Symbol.
type Kind uint8

const (
	KindNote Kind = iota
	KindRest
	KindBar
	KindClef
	KindKeySig
	KindTimeSig
	KindTempo
	KindPart
	KindGrace
	KindFormat
	KindTuplet
	KindStaffBreak
	KindCustos
)

var kindNames = [...]string{
	KindNote:       "note",
	KindRest:       "rest",
	KindBar:        "bar",
	KindClef:       "clef",
	KindKeySig:     "key",
	KindTimeSig:    "meter",
	KindTempo:      "tempo",
	KindPart:       "part",
	KindGrace:      "grace",
	KindFormat:     "format",
	KindTuplet:     "tuplet",
	KindStaffBreak: "staffbreak",
	KindCustos:     "custos",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a serialized kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// SeqClass is the tier of a symbol in the sequence-class lattice that orders
// symbols sharing the same time.
type SeqClass uint8

const (
	SeqClef SeqClass = iota
	SeqSig
	SeqMain
	SeqOther
)

// Seq returns the lattice tier and the rank inside the tier.
// Inside SeqMain bars come first, then grace notes and tuplet markers, then
// notes and rests.
func (k Kind) Seq() (SeqClass, int8) {
	switch k {
	case KindClef:
		return SeqClef, 0
	case KindKeySig, KindTimeSig:
		return SeqSig, 0
	case KindBar:
		return SeqMain, 0
	case KindGrace, KindTuplet:
		return SeqMain, 1
	case KindNote, KindRest:
		return SeqMain, 2
	default:
		return SeqOther, 0
	}
}

// Flags are boolean attributes of a symbol.
type Flags uint32

const (
	FlagBeamStart Flags = 1 << iota
	FlagBeamEnd
	FlagBeamBreak // forced break before this note
	FlagBeamed    // part of an accepted beam group
	FlagInvisible
	FlagSynthetic // inserted by the engine
	FlagGhost     // synthetic boundary symbol at a line cut
	FlagEOL       // explicit line break after this symbol
	FlagMeasureRest
	FlagInTuplet
	FlagInBeam // spacing inside a beam group
)

// Has reports whether all bits in f are set.
func (fl Flags) Has(f Flags) bool { return fl&f == f }

// Accidental codes.
type Accidental int8

const (
	AccNone Accidental = iota
	AccSharp
	AccFlat
	AccNatural
	AccDoubleSharp
	AccDoubleFlat
)

var accNames = [...]string{"", "sharp", "flat", "natural", "dsharp", "dflat"}

func (a Accidental) String() string {
	if int(a) >= 0 && int(a) < len(accNames) {
		return accNames[a]
	}
	return "?"
}

// ParseAccidental maps a serialized accidental name.
func ParseAccidental(s string) (Accidental, bool) {
	for i, name := range accNames {
		if name == s {
			return Accidental(i), true
		}
	}
	return AccNone, false
}

// Alter returns the semitone alteration, and false for AccNone.
func (a Accidental) Alter() (int, bool) {
	switch a {
	case AccSharp:
		return 1, true
	case AccFlat:
		return -1, true
	case AccNatural:
		return 0, true
	case AccDoubleSharp:
		return 2, true
	case AccDoubleFlat:
		return -2, true
	}
	return 0, false
}

// Direction of stems and arcs.
type Direction int8

const (
	DirDown Direction = -1
	DirAuto Direction = 0
	DirUp   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	}
	return "auto"
}

// ParseDirection maps "up", "down" and "" / "auto".
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "up":
		return DirUp, true
	case "down":
		return DirDown, true
	case "", "auto":
		return DirAuto, true
	}
	return DirAuto, false
}

// Head is one note head of a chord.
type Head struct {
	Pitch     int
	Acc       Accidental
	TieStart  bool
	TieEnd    bool
	SlurStart int
	SlurEnd   int
	TieDir    Direction
	SlurDir   Direction

	// Offset is the resolved staff position in diatonic steps from the
	// bottom line, set by the pitch resolver.
	Offset int
	// Semi is the sounding chromatic pitch (middle C = 0) after key and
	// measure accidentals, set by the pitch resolver.
	Semi int
}

// Y returns the vertical head position in points.
func (h Head) Y() float64 { return float64(h.Offset) * StepHeight }

// GraceNote is a single grace note inside a grace group.
type GraceNote struct {
	Heads []Head
	Dur   int
}

// Tuplet marks r notes of duration p played in the time of q.
type Tuplet struct {
	P, Q, R int
}

// Symbol is one entry of the arena: a tagged variant with a shared
// positional record. Fields not meaningful for a Kind are left zero.
type Symbol struct {
	Kind  Kind
	Flags Flags

	Voice int
	Staff int
	Time  int
	Dur   int // played duration, advances time
	Len   int // written duration (head shape, flags); Dur when zero

	// Ordering
	Seq    SeqClass
	Rank   int8
	Column int

	// Payloads
	Heads       []Head
	Grace       []GraceNote
	Bar         BarType
	Clef        Clef
	Key         Key
	Meter       Meter
	Tuplet      Tuplet
	Text        string
	Decorations []string
	Lyrics      []string
	Annotations []string

	// Layout
	Multi   int8 // +1 upper, -1 lower voice of a shared staff
	Stem    Direction
	StemY   float64
	NFlags  int
	Line    int
	X       float64
	Wl, Wr  float64
	Shrink  float64
	Space   float64
	Stretch float64
	YMax    float64
	YMin    float64

	// Chains
	Next, Prev   Index
	TNext, TPrev Index
}

// Has reports whether the flag is set.
func (s *Symbol) Has(f Flags) bool { return s.Flags.Has(f) }

// Set sets the flag.
func (s *Symbol) Set(f Flags) { s.Flags |= f }

// Clear clears the flag.
func (s *Symbol) Clear(f Flags) { s.Flags &^= f }

// IsNote reports whether the symbol is a (possibly chord) note.
func (s *Symbol) IsNote() bool { return s.Kind == KindNote && len(s.Heads) > 0 }

// Visible reports whether the symbol is drawn.
func (s *Symbol) Visible() bool { return !s.Has(FlagInvisible) }

// Timed reports whether the symbol takes musical time.
func (s *Symbol) Timed() bool {
	return (s.Kind == KindNote || s.Kind == KindRest) && s.Dur > 0
}

// TopOffset is the highest head offset, or the middle line for non-notes.
func (s *Symbol) TopOffset() int {
	if len(s.Heads) == 0 {
		return MiddleLine
	}
	top := s.Heads[0].Offset
	for _, h := range s.Heads[1:] {
		top = max(top, h.Offset)
	}
	return top
}

// BottomOffset is the lowest head offset, or the middle line for non-notes.
func (s *Symbol) BottomOffset() int {
	if len(s.Heads) == 0 {
		return MiddleLine
	}
	bot := s.Heads[0].Offset
	for _, h := range s.Heads[1:] {
		bot = min(bot, h.Offset)
	}
	return bot
}

// AvgOffset is the mean head offset.
func (s *Symbol) AvgOffset() float64 {
	if len(s.Heads) == 0 {
		return MiddleLine
	}
	sum := 0
	for _, h := range s.Heads {
		sum += h.Offset
	}
	return float64(sum) / float64(len(s.Heads))
}

// Written returns the written duration used for head shape and flags.
func (s *Symbol) Written() int {
	if s.Len > 0 {
		return s.Len
	}
	return s.Dur
}

// HasStem reports whether the note carries a stem (shorter than a whole).
func (s *Symbol) HasStem() bool {
	w := s.Written()
	return s.Kind == KindNote && w > 0 && w < Whole
}

// FlagCount returns the number of flags (or beams) for a duration: zero for
// quarters and longer, one for eighths, two for sixteenths and so on. Dotted
// values count as their undotted base.
func FlagCount(dur int) int {
	if dur <= 0 {
		return 0
	}
	n := 0
	for base := Quarter; base > dur && base > 1; base /= 2 {
		n++
	}
	return n
}

// Dots returns the number of augmentation dots of a duration.
func Dots(dur int) int {
	if dur <= 0 {
		return 0
	}
	base := BaseLen * 8
	for base > dur {
		base /= 2
	}
	rem := dur - base
	n := 0
	for half := base / 2; rem > 0 && half > 0; half /= 2 {
		if rem < half {
			break
		}
		rem -= half
		n++
	}
	return n
}
