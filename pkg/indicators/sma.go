// Package indicators derives technical values from price sequences. An
// indicator subscribes to its source sequence at construction and maintains
// an output sequence of its own, so indicators chain: the output of one can
// be the source of another.
package indicators

import (
	"github.com/tradeloop-dev/tradeloop/pkg/series"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/circular"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Sma is a simple moving average over a fixed window. It emits nothing
// until the window fills.
type Sma struct {
	window *circular.PointBuffer
	out    *series.Sequence[fixed.Point]
}

func NewSma(source *series.Sequence[fixed.Point], windowSize int) *Sma {
	if windowSize <= 0 {
		panic("sma window size must be positive")
	}

	s := &Sma{
		window: circular.NewPointBuffer(uint(windowSize)),
		out:    series.NewSequence[fixed.Point](source.MaxLen()),
	}
	source.NewValueEvent().Subscribe(s.onValue)
	return s
}

func (s *Sma) onValue(v series.Value[fixed.Point]) {
	s.window.PushUpdate(v.Value)
	if !s.window.IsFull() {
		return
	}
	appendOutput(s.out, v.TimeStamp, s.window.Mean())
}

func (s *Sma) Output() *series.Sequence[fixed.Point] {
	return s.out
}

func (s *Sma) Ready() bool {
	return s.out.Len() > 0
}

// Value returns the latest average. Panics when not ready.
func (s *Sma) Value() fixed.Point {
	return s.out.Ago(0)
}
