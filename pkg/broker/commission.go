package broker

import (
	"github.com/tradeloop-dev/tradeloop/pkg/utility/fixed"
)

// Commission computes the fee charged at fill time. Implementations are
// pure: no side effects, non-negative results.
type Commission interface {
	Calculate(order Order, price fixed.Point, quantity int64) fixed.Point
}

// NoCommission charges nothing.
type NoCommission struct{}

func (NoCommission) Calculate(Order, fixed.Point, int64) fixed.Point {
	return fixed.Zero
}

// FixedCommission charges a flat amount per fill.
type FixedCommission struct {
	amount fixed.Point
}

func NewFixedCommission(amount fixed.Point) FixedCommission {
	if amount.IsNeg() {
		panic("commission amount must not be negative")
	}
	return FixedCommission{amount: amount}
}

func (c FixedCommission) Calculate(Order, fixed.Point, int64) fixed.Point {
	return c.amount
}

// PercentageCommission charges a fraction of the traded value.
type PercentageCommission struct {
	rate fixed.Point
}

func NewPercentageCommission(rate fixed.Point) PercentageCommission {
	if rate.IsNeg() {
		panic("commission rate must not be negative")
	}
	return PercentageCommission{rate: rate}
}

func (c PercentageCommission) Calculate(_ Order, price fixed.Point, quantity int64) fixed.Point {
	return price.MulInt64(quantity).Mul(c.rate)
}
