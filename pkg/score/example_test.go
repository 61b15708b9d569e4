package score_test

import (
	"fmt"

	"github.com/matzehuels/engraver/pkg/score"
)

func ExampleTune_Append() {
	t := score.NewTune("Minuet")
	v := t.AddVoice("V1", 0)
	t.Append(v, score.Note(score.Quarter, 2))
	t.Append(v, score.Note(score.Half, 4))
	t.Append(v, score.Bar(score.BarSingle))

	for _, i := range t.VoiceChain(v) {
		s := t.At(i)
		fmt.Println(s.Kind, s.Time)
	}
	// Output:
	// note 0
	// note 384
	// bar 1152
}
