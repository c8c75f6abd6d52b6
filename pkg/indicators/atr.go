package indicators

import (
	"github.com/tradeloop-dev/tradeloop/pkg/market"
	"github.com/tradeloop-dev/tradeloop/pkg/series"
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Atr is the average true range with Wilder smoothing, fed from a bar
// sequence. The first true range seeds the average directly.
type Atr struct {
	windowSize int

	lastClose fixed.Point
	lastAtr   fixed.Point
	currentTr fixed.Point

	out *series.Sequence[fixed.Point]
}

func NewAtr(source *series.Sequence[market.Bar], windowSize int) *Atr {
	if windowSize <= 0 {
		panic("atr window size must be positive")
	}

	a := &Atr{
		windowSize: windowSize,
		out:        series.NewSequence[fixed.Point](source.MaxLen()),
	}
	source.NewValueEvent().Subscribe(a.onBar)
	return a
}

func (a *Atr) onBar(v series.Value[market.Bar]) {
	b := v.Value
	defer func() {
		a.lastClose = b.Close
	}()

	if a.lastClose.IsZero() {
		return
	}

	tr := b.High.Sub(b.Low).Abs()
	if hc := b.High.Sub(a.lastClose).Abs(); hc.Gt(tr) {
		tr = hc
	}
	if lc := b.Low.Sub(a.lastClose).Abs(); lc.Gt(tr) {
		tr = lc
	}
	a.currentTr = tr

	if a.lastAtr.IsZero() {
		a.lastAtr = tr
	} else {
		a.lastAtr = a.lastAtr.MulInt(a.windowSize - 1).Add(tr).DivInt(a.windowSize)
	}
	appendOutput(a.out, v.TimeStamp, a.lastAtr)
}

func (a *Atr) Output() *series.Sequence[fixed.Point] {
	return a.out
}

func (a *Atr) TrueRange() fixed.Point {
	return a.currentTr
}

func (a *Atr) Ready() bool {
	return a.out.Len() > 0
}

// Value returns the latest average true range. Panics when not ready.
func (a *Atr) Value() fixed.Point {
	return a.out.Ago(0)
}
