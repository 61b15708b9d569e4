package score

import "fmt"

// Voice is one melodic line of a tune. First and Last delimit its chain.
type Voice struct {
	ID    string
	Index int
	Staff int

	// Current clef/key/meter state, initialised from the voice header and
	// updated by the stages as they walk the chain.
	Clef  Clef
	Key   Key
	Meter Meter

	Floating  bool      // staff chosen per note between Staff and Staff+1
	Second    bool      // stacked below another voice on a shared staff
	Stem      Direction // forced stem direction, DirAuto if free
	Transpose int       // diatonic steps

	First, Last Index
}

// Staff is one five-line (by default) staff of the score.
type Staff struct {
	Index   int
	Lines   int
	Clef    Clef
	Profile Profile

	// Y is the top line position measured down from the top of the line
	// block, set by the stacker.
	Y float64
}

// System groups staves. A change of system forces a line cut.
type System struct {
	Time     int
	Staves   []int
	Braces   [][2]int
	Brackets [][2]int
}

// Line is one solved line of music: the inclusive time-chain range
// First..Last and the glue ratios used to place it. Scale is non-zero only
// for an overfull line squeezed proportionally.
type Line struct {
	Number      int
	First, Last Index
	Width       float64

	Shrink, Space, Stretch float64
	Alfa, Beta, Scale      float64
	Overfull, Underfull    bool
}

// BeamGroup is a maximal run of consecutive notes of one voice joined by a
// beam.
type BeamGroup struct {
	Voice    int
	Notes    []Index
	Stem     Direction
	Rejected bool
}

// ArcKind distinguishes slurs from ties.
type ArcKind uint8

const (
	ArcSlur ArcKind = iota
	ArcTie
)

func (k ArcKind) String() string {
	if k == ArcTie {
		return "tie"
	}
	return "slur"
}

// Point is a position in points.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Arc is a resolved slur or tie: a cubic Bezier from P0 to P3.
type Arc struct {
	Kind       ArcKind
	Start, End Index
	StartHead  int // -1 when the arc attaches to the whole chord
	EndHead    int
	Dir        Direction
	Staff      int
	Line       int

	P0, C1, C2, P3 Point

	// HalfStart is set when the arc starts on an earlier line or bar;
	// HalfEnd when it continues past this line or bar.
	HalfStart, HalfEnd bool
}

// Tune is the per-tune context threaded through every stage.
type Tune struct {
	Title string
	Arena

	Voices  []*Voice
	Staves  []*Staff
	Systems []System

	// First and Last delimit the time chain.
	First, Last Index
}

// NewTune returns an empty tune.
func NewTune(title string) *Tune {
	return &Tune{Title: title, First: Nil, Last: Nil}
}

// AddVoice declares a voice on the given staff, creating staves as needed.
// Declaration order is significant: it breaks ties between simultaneous
// symbols and decides the upper voice of a shared staff.
func (t *Tune) AddVoice(id string, staff int) *Voice {
	v := &Voice{
		ID:    id,
		Index: len(t.Voices),
		Staff: staff,
		Clef:  Treble(),
		First: Nil,
		Last:  Nil,
	}
	t.Voices = append(t.Voices, v)
	t.EnsureStaves(staff + 1)
	return v
}

// EnsureStaves grows the staff list to at least n staves.
func (t *Tune) EnsureStaves(n int) {
	for len(t.Staves) < n {
		st := &Staff{Index: len(t.Staves), Lines: 5, Clef: Treble()}
		st.Profile.Reset(0)
		t.Staves = append(t.Staves, st)
	}
}

// Voice returns the voice with the given ID, or nil.
func (t *Tune) Voice(id string) *Voice {
	for _, v := range t.Voices {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// Append adds s at the end of v's chain. Its time is the end of the
// previous symbol of the voice.
func (t *Tune) Append(v *Voice, s Symbol) Index {
	s.Voice = v.Index
	s.Staff = v.Staff
	s.Seq, s.Rank = s.Kind.Seq()
	if v.Last != Nil {
		prev := t.At(v.Last)
		s.Time = prev.Time + prev.Dur
	}
	i := t.Add(s)
	if v.Last == Nil {
		v.First = i
	} else {
		t.At(v.Last).Next = i
		t.At(i).Prev = v.Last
	}
	v.Last = i
	return i
}

// InsertBefore splices s into the voice chain before at. The new symbol
// takes at's voice, staff and time.
func (t *Tune) InsertBefore(at Index, s Symbol) Index {
	ref := *t.At(at)
	s.Voice, s.Staff, s.Time = ref.Voice, ref.Staff, ref.Time
	s.Seq, s.Rank = s.Kind.Seq()
	i := t.Add(s)
	n := t.At(i)
	n.Next, n.Prev = at, ref.Prev
	if ref.Prev != Nil {
		t.At(ref.Prev).Next = i
	} else {
		t.Voices[ref.Voice].First = i
	}
	t.At(at).Prev = i
	return i
}

// InsertAfter splices s into the voice chain after at. The new symbol takes
// at's voice and staff and starts when at ends.
func (t *Tune) InsertAfter(at Index, s Symbol) Index {
	ref := *t.At(at)
	s.Voice, s.Staff, s.Time = ref.Voice, ref.Staff, ref.Time+ref.Dur
	s.Seq, s.Rank = s.Kind.Seq()
	i := t.Add(s)
	n := t.At(i)
	n.Prev, n.Next = at, ref.Next
	if ref.Next != Nil {
		t.At(ref.Next).Prev = i
	} else {
		t.Voices[ref.Voice].Last = i
	}
	t.At(at).Next = i
	return i
}

// Unlink removes i from its voice chain. The symbol stays in the arena.
func (t *Tune) Unlink(i Index) {
	s := t.At(i)
	v := t.Voices[s.Voice]
	if s.Prev != Nil {
		t.At(s.Prev).Next = s.Next
	} else {
		v.First = s.Next
	}
	if s.Next != Nil {
		t.At(s.Next).Prev = s.Prev
	} else {
		v.Last = s.Prev
	}
	s.Next, s.Prev = Nil, Nil
}

// LinkTime appends i to the time chain.
func (t *Tune) LinkTime(i Index) {
	s := t.At(i)
	s.TNext, s.TPrev = Nil, t.Last
	if t.Last == Nil {
		t.First = i
	} else {
		t.At(t.Last).TNext = i
	}
	t.Last = i
}

// InsertTimeBefore links i into the time chain before at.
func (t *Tune) InsertTimeBefore(at, i Index) {
	ref := t.At(at)
	prev := ref.TPrev
	ref.TPrev = i
	s := t.At(i)
	s.TNext, s.TPrev = at, prev
	if prev == Nil {
		t.First = i
	} else {
		t.At(prev).TNext = i
	}
}

// InsertTimeAfter links i into the time chain after at.
func (t *Tune) InsertTimeAfter(at, i Index) {
	ref := t.At(at)
	next := ref.TNext
	ref.TNext = i
	s := t.At(i)
	s.TPrev, s.TNext = at, next
	if next == Nil {
		t.Last = i
	} else {
		t.At(next).TPrev = i
	}
}

// UnlinkTime removes i from the time chain.
func (t *Tune) UnlinkTime(i Index) {
	s := t.At(i)
	if s.TPrev != Nil {
		t.At(s.TPrev).TNext = s.TNext
	} else {
		t.First = s.TNext
	}
	if s.TNext != Nil {
		t.At(s.TNext).TPrev = s.TPrev
	} else {
		t.Last = s.TPrev
	}
	s.TNext, s.TPrev = Nil, Nil
}

// VoiceChain returns the indices of v's chain in order.
func (t *Tune) VoiceChain(v *Voice) []Index {
	var out []Index
	for i := v.First; i != Nil; i = t.At(i).Next {
		out = append(out, i)
	}
	return out
}

// TimeChain returns the indices of the time chain in order.
func (t *Tune) TimeChain() []Index {
	var out []Index
	for i := t.First; i != Nil; i = t.At(i).TNext {
		out = append(out, i)
	}
	return out
}

// SystemAt returns the index of the system in effect at time tm, or -1 when
// the tune declares no systems.
func (t *Tune) SystemAt(tm int) int {
	n := -1
	for k, sys := range t.Systems {
		if sys.Time <= tm {
			n = k
		}
	}
	return n
}

// Validate checks the structural invariants every stage relies on: chains
// are consistent and per-voice times never decrease.
func (t *Tune) Validate() error {
	for _, v := range t.Voices {
		prev := Nil
		last := -1
		for i := v.First; i != Nil; i = t.At(i).Next {
			s := t.At(i)
			if s.Prev != prev {
				return fmt.Errorf("voice %s: broken back link at %d", v.ID, i)
			}
			if s.Voice != v.Index {
				return fmt.Errorf("voice %s: symbol %d belongs to voice %d", v.ID, i, s.Voice)
			}
			if s.Time < last {
				return fmt.Errorf("voice %s: time goes backwards at %d (%d < %d)", v.ID, i, s.Time, last)
			}
			last = s.Time
			prev = i
		}
		if prev != v.Last {
			return fmt.Errorf("voice %s: tail mismatch", v.ID)
		}
	}
	return nil
}

// ===== Symbol constructors =====

// Note returns a note (a chord when more than one pitch is given).
func Note(dur int, pitches ...int) Symbol {
	heads := make([]Head, len(pitches))
	for k, p := range pitches {
		heads[k] = Head{Pitch: p}
	}
	return Symbol{Kind: KindNote, Dur: dur, Heads: heads}
}

// Rest returns a rest.
func Rest(dur int) Symbol {
	return Symbol{Kind: KindRest, Dur: dur}
}

// MeasureRest returns a whole-measure rest lasting dur ticks.
func MeasureRest(dur int) Symbol {
	return Symbol{Kind: KindRest, Dur: dur, Flags: FlagMeasureRest}
}

// Bar returns a bar line.
func Bar(b BarType) Symbol {
	return Symbol{Kind: KindBar, Bar: b}
}

// ClefChange returns a clef symbol.
func ClefChange(c Clef) Symbol {
	return Symbol{Kind: KindClef, Clef: c}
}

// KeyChange returns a key signature symbol.
func KeyChange(k Key) Symbol {
	return Symbol{Kind: KindKeySig, Key: k}
}

// MeterChange returns a time signature symbol.
func MeterChange(m Meter) Symbol {
	return Symbol{Kind: KindTimeSig, Meter: m}
}

// Graces returns a grace group.
func Graces(notes ...GraceNote) Symbol {
	return Symbol{Kind: KindGrace, Grace: notes}
}

// TupletMark returns a tuplet marker applying to the next r notes.
func TupletMark(p, q, r int) Symbol {
	return Symbol{Kind: KindTuplet, Tuplet: Tuplet{P: p, Q: q, R: r}}
}

// TextMark returns a tempo, part or format symbol carrying text.
func TextMark(k Kind, text string) Symbol {
	return Symbol{Kind: k, Text: text}
}

// Beamed marks a run of notes as one explicit beam group.
func Beamed(notes ...Symbol) []Symbol {
	if len(notes) == 0 {
		return notes
	}
	notes[0].Set(FlagBeamStart)
	notes[len(notes)-1].Set(FlagBeamEnd)
	return notes
}
