package beam

import (
	"github.com/matzehuels/engraver/pkg/config"
	"github.com/matzehuels/engraver/pkg/score"
)

// middleY is the height of the middle staff line.
const middleY = score.MiddleLine * score.StepHeight

// flagStep lengthens the stem of an unbeamed note per flag beyond the
// first.
const flagStep = 3.0

// Stems sets the stem tip of every stemmed note no beam covers. A stem has
// the default length from the head farthest from its tip, at least the
// minimum length past the nearest head, reaches the middle line and grows
// with the number of flags. Vertical extents are updated.
func Stems(t *score.Tune, cfg config.Layout) {
	for _, v := range t.Voices {
		for i := v.First; i != score.Nil; i = t.At(i).Next {
			s := t.At(i)
			if !s.IsNote() || s.Has(score.FlagBeamed) {
				continue
			}
			if !s.HasStem() {
				s.StemY = 0
				continue
			}
			extra := float64(max(0, s.NFlags-1)) * flagStep
			if s.Stem == score.DirDown {
				tip := float64(s.TopOffset())*score.StepHeight - cfg.Beam.StemLen - extra
				tip = min(tip, float64(s.BottomOffset())*score.StepHeight-cfg.Beam.StemMin(s.NFlags))
				s.StemY = min(tip, middleY)
				s.YMin = min(s.YMin, s.StemY)
				continue
			}
			tip := float64(s.BottomOffset())*score.StepHeight + cfg.Beam.StemLen + extra
			tip = max(tip, float64(s.TopOffset())*score.StepHeight+cfg.Beam.StemMin(s.NFlags))
			s.StemY = max(tip, middleY)
			s.YMax = max(s.YMax, s.StemY)
		}
	}
}
