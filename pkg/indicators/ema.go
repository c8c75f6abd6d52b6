package indicators

import (
	"github.com/tradeloop-dev/tradeloop/pkg/series"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/circular"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Ema is an exponential moving average with multiplier 2/(n+1), seeded with
// the simple average of the first n values.
type Ema struct {
	windowSize int
	multiplier fixed.Point

	seed *circular.PointBuffer
	last fixed.Point
	live bool

	out *series.Sequence[fixed.Point]
}

func NewEma(source *series.Sequence[fixed.Point], windowSize int) *Ema {
	if windowSize <= 0 {
		panic("ema window size must be positive")
	}

	e := &Ema{
		windowSize: windowSize,
		multiplier: fixed.FromInt(2, 0).DivInt(windowSize + 1),
		seed:       circular.NewPointBuffer(uint(windowSize)),
		out:        series.NewSequence[fixed.Point](source.MaxLen()),
	}
	source.NewValueEvent().Subscribe(e.onValue)
	return e
}

func (e *Ema) onValue(v series.Value[fixed.Point]) {
	if !e.live {
		e.seed.PushUpdate(v.Value)
		if !e.seed.IsFull() {
			return
		}
		e.last = e.seed.Mean()
		e.live = true
	} else {
		e.last = v.Value.Sub(e.last).Mul(e.multiplier).Add(e.last)
	}
	appendOutput(e.out, v.TimeStamp, e.last)
}

func (e *Ema) Output() *series.Sequence[fixed.Point] {
	return e.out
}

func (e *Ema) Ready() bool {
	return e.live
}

// Value returns the latest average. Panics when not ready.
func (e *Ema) Value() fixed.Point {
	return e.out.Ago(0)
}
