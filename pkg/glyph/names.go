package glyph

import "github.com/matzehuels/engraver/pkg/score"

// HeadFor returns the note head glyph for a written duration.
func HeadFor(dur int) string {
	switch {
	case dur >= 2*score.Whole:
		return HeadBreve
	case dur >= score.Whole:
		return HeadWhole
	case dur >= score.Half:
		return HeadHalf
	}
	return HeadBlack
}

// RestFor returns the rest glyph for a written duration.
func RestFor(dur int) string {
	switch {
	case dur >= score.Whole:
		return RestWhole
	case dur >= score.Half:
		return RestHalf
	case dur >= score.Quarter:
		return RestQuarter
	case dur >= score.Eighth:
		return RestEighth
	}
	return RestShort
}

// AccidentalFor returns the glyph for an accidental, "" for none.
func AccidentalFor(a score.Accidental) string {
	if a == score.AccNone {
		return ""
	}
	return "acc." + a.String()
}

// ClefFor returns the clef glyph name.
func ClefFor(c score.Clef) string {
	switch c.Type {
	case score.ClefF:
		return "clef.F"
	case score.ClefC:
		return "clef.C"
	case score.ClefPerc:
		return "clef.perc"
	}
	return "clef.G"
}
