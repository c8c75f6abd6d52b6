package indicators

import (
	"github.com/tradeloop-dev/tradeloop/pkg/series"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Rsi is the relative strength index with Wilder smoothing. Average gain
// and loss are seeded over the first windowSize deltas, then each delta
// updates them as avg = (avg*(n-1) + delta) / n.
type Rsi struct {
	windowSize int

	lastValue fixed.Point
	havePrev  bool

	avgGain fixed.Point
	avgLoss fixed.Point
	warmup  int

	out *series.Sequence[fixed.Point]
}

func NewRsi(source *series.Sequence[fixed.Point], windowSize int) *Rsi {
	if windowSize <= 0 {
		panic("rsi window size must be positive")
	}

	r := &Rsi{
		windowSize: windowSize,
		out:        series.NewSequence[fixed.Point](source.MaxLen()),
	}
	source.NewValueEvent().Subscribe(r.onValue)
	return r
}

func (r *Rsi) onValue(v series.Value[fixed.Point]) {
	if !r.havePrev {
		r.lastValue = v.Value
		r.havePrev = true
		return
	}

	delta := v.Value.Sub(r.lastValue)
	r.lastValue = v.Value

	gain, loss := fixed.Zero, fixed.Zero
	if delta.Gt(fixed.Zero) {
		gain = delta
	} else {
		loss = delta.Neg()
	}

	if r.warmup < r.windowSize {
		r.avgGain = r.avgGain.Add(gain)
		r.avgLoss = r.avgLoss.Add(loss)
		r.warmup++
		if r.warmup < r.windowSize {
			return
		}
		r.avgGain = r.avgGain.DivInt(r.windowSize)
		r.avgLoss = r.avgLoss.DivInt(r.windowSize)
	} else {
		r.avgGain = r.avgGain.MulInt(r.windowSize - 1).Add(gain).DivInt(r.windowSize)
		r.avgLoss = r.avgLoss.MulInt(r.windowSize - 1).Add(loss).DivInt(r.windowSize)
	}

	var rsi fixed.Point
	if r.avgLoss.IsZero() {
		rsi = fixed.Hundred
	} else {
		rs := r.avgGain.Div(r.avgLoss)
		rsi = fixed.Hundred.Sub(fixed.Hundred.Div(fixed.One.Add(rs)))
	}
	appendOutput(r.out, v.TimeStamp, rsi)
}

func (r *Rsi) Output() *series.Sequence[fixed.Point] {
	return r.out
}

func (r *Rsi) Ready() bool {
	return r.out.Len() > 0
}

// Value returns the latest index. Panics when not ready.
func (r *Rsi) Value() fixed.Point {
	return r.out.Ago(0)
}
