// Package merge builds the global time chain of a tune.
//
// Voices are merged by (time, sequence class, rank) with ties broken by
// voice declaration order, so symbols sounding together form contiguous
// runs ordered clef, signatures, bars, grace notes, notes. A voice whose
// own zero-length symbols disagree with that order (a key change written
// after a bar) keeps its chain order; only the time chain is reordered.
//
// Each run gets a column number shared by all its symbols; the spacing
// engine places one column at one x.
//
// Before merging, every voice's bars are checked against the first
// non-second voice. A voice drifting by more than a measure is reported
// and shifted back into step at the offending bar.
package merge

import (
	"slices"

	errs "github.com/matzehuels/engraver/pkg/errors"
	"github.com/matzehuels/engraver/pkg/score"
)

// Merge runs the bar check, then links every symbol into the time chain
// and assigns columns. Any existing time chain is discarded.
func Merge(t *score.Tune, diag *errs.Diagnostics) error {
	if err := t.Validate(); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "tune %q", t.Title)
	}
	BarCheck(t, diag)

	t.First, t.Last = score.Nil, score.Nil
	var order []entry
	for _, v := range t.Voices {
		pos := 0
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			order = append(order, entry{idx: i, key: keyOf(t.At(i)), voice: v.Index, pos: pos})
			pos++
		}
	}
	slices.SortStableFunc(order, compare)

	column := -1
	var prev key
	for _, e := range order {
		if column < 0 || e.key != prev {
			column++
			prev = e.key
		}
		t.At(e.idx).Column = column
		t.LinkTime(e.idx)
	}
	return nil
}

// entry is one symbol waiting to be merged. Within a voice, pos keeps the
// chain order for symbols with equal keys.
type entry struct {
	idx   score.Index
	key   key
	voice int
	pos   int
}

func compare(a, b entry) int {
	if a.key != b.key {
		if a.key.less(b.key) {
			return -1
		}
		return 1
	}
	if a.voice != b.voice {
		return a.voice - b.voice
	}
	return a.pos - b.pos
}

type key struct {
	time int
	seq  score.SeqClass
	rank int8
}

func keyOf(s *score.Symbol) key {
	return key{time: s.Time, seq: s.Seq, rank: s.Rank}
}

// less orders keys by time, then class, then rank.
func (a key) less(b key) bool {
	if a.time != b.time {
		return a.time < b.time
	}
	if a.seq != b.seq {
		return a.seq < b.seq
	}
	return a.rank < b.rank
}

// BarCheck compares the k-th bar of every voice with the k-th bar of the
// reference voice (the first voice not marked Second). When they differ by
// more than one measure, a structural warning is recorded and the rest of
// the voice is shifted so the bars line up again.
func BarCheck(t *score.Tune, diag *errs.Diagnostics) {
	ref := reference(t)
	if ref == nil {
		return
	}
	refBars := bars(t, ref)

	for _, v := range t.Voices {
		if v == ref {
			continue
		}
		meter := v.Meter
		k := 0
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			if s.Kind == score.KindTimeSig {
				meter = s.Meter
				continue
			}
			if s.Kind != score.KindBar {
				continue
			}
			if k >= len(refBars) {
				break
			}
			target := refBars[k]
			k++
			if abs(s.Time-target) <= meter.MeasureLen() {
				continue
			}
			// Never move the bar before the start of the previous symbol.
			if s.Prev != score.Nil {
				target = max(target, t.At(s.Prev).Time)
			}
			diff := s.Time - target
			diag.Structural(errs.At(v.Index, -1, s.Time),
				"voice %s bar %d is %d ticks off the reference voice, resynchronised", v.ID, k, diff)
			for j := i; j != score.Nil; j = t.At(j).Next {
				t.At(j).Time -= diff
			}
		}
	}
}

func reference(t *score.Tune) *score.Voice {
	for _, v := range t.Voices {
		if !v.Second {
			return v
		}
	}
	if len(t.Voices) > 0 {
		return t.Voices[0]
	}
	return nil
}

func bars(t *score.Tune, v *score.Voice) []int {
	var out []int
	for i := v.First; i != score.Nil; i = t.At(i).Next {
		if s := t.At(i); s.Kind == score.KindBar {
			out = append(out, s.Time)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
