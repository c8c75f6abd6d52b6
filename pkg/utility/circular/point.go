package circular

import (
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// PointBuffer keeps a rolling window of fixed points together with
// incrementally maintained sum, mean, variance and standard deviation.
type PointBuffer struct {
	b *Buffer[fixed.Point]

	mean       fixed.Point
	stdDev     fixed.Point
	sum        fixed.Point
	sumSquares fixed.Point
	variance   fixed.Point
}

func NewPointBuffer(capacity uint) *PointBuffer {
	return &PointBuffer{
		b: NewBuffer[fixed.Point](capacity),
	}
}

func (p *PointBuffer) PushUpdate(v fixed.Point) {
	if p.b.IsEmpty() {
		p.b.Push(v)
		p.sum = v
		p.sumSquares = v.Mul(v)
	} else if !p.b.IsFull() {
		p.b.Push(v)
		p.sum = p.sum.Add(v)
		p.sumSquares = p.sumSquares.Add(v.Mul(v))
	} else {
		toBeRemoved := p.b.Oldest()
		p.b.Push(v)
		p.sum = p.sum.Sub(toBeRemoved).Add(v)
		p.sumSquares = p.sumSquares.Sub(toBeRemoved.Mul(toBeRemoved)).Add(v.Mul(v))
	}

	size := int(p.b.Size())
	p.mean = p.sum.DivInt(size)
	p.variance = p.sumSquares.DivInt(size).Sub(p.mean.Mul(p.mean))
	if p.variance.Gt(fixed.Zero) {
		p.stdDev = p.variance.Sqrt()
	} else {
		p.stdDev = fixed.Zero
	}
}

func (p *PointBuffer) Size() uint {
	return p.b.Size()
}

func (p *PointBuffer) IsFull() bool {
	return p.b.IsFull()
}

func (p *PointBuffer) Mean() fixed.Point {
	return p.mean
}

func (p *PointBuffer) Sum() fixed.Point {
	return p.sum
}

func (p *PointBuffer) Variance() fixed.Point {
	return p.variance
}

func (p *PointBuffer) StdDev() fixed.Point {
	return p.stdDev
}
